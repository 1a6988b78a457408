package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventpublisher/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.Event
	lastFilter domain.EventFilter
	lastPage   *domain.Page
	// beforeUpdate runs ahead of every Update, standing in for a concurrent writer.
	beforeUpdate func(id string)
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event)}
}

func (f *fakeEventRepo) put(e *domain.Event) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	f.byID[e.ID] = &cp
	return e
}

func (f *fakeEventRepo) get(id string) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.ID = uuid.NewString()
	f.put(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e := f.get(id); e != nil {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event, expected domain.EventState) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate(e.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.State != expected {
		return domain.ErrConflict
	}
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) Search(ctx context.Context, filter domain.EventFilter, page *domain.Page) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	f.lastPage = page

	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if len(filter.States) > 0 && !slices.Contains(filter.States, e.State) {
			continue
		}
		if len(filter.CategoryIDs) > 0 && !slices.Contains(filter.CategoryIDs, e.CategoryID) {
			continue
		}
		if filter.Paid != nil && e.Paid != *filter.Paid {
			continue
		}
		if filter.RangeStart != nil && e.EventDate.Before(*filter.RangeStart) {
			continue
		}
		if filter.RangeEnd != nil && !e.EventDate.Before(*filter.RangeEnd) {
			continue
		}
		if filter.Text != "" {
			text := strings.ToLower(filter.Text)
			if !strings.Contains(strings.ToLower(e.Annotation), text) && !strings.Contains(strings.ToLower(e.Description), text) {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.Event) int {
		if c := a.EventDate.Compare(b.EventDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if page != nil {
		start, end := page.Slice(len(out))
		out = out[start:end]
	}
	return out, nil
}

func (f *fakeEventRepo) ListByInitiator(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if e.InitiatorID == initiatorID {
			cp := *e
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Event) int { return b.CreatedOn.Compare(a.CreatedOn) })
	start, end := page.Slice(len(out))
	return out[start:end], nil
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.User
	err  error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) add(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) email(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Email
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeCategoryRepo is an in-memory CategoryRepository for tests.
type fakeCategoryRepo struct {
	byID map[string]*domain.Category
}

func newFakeCategoryRepo(ids ...string) *fakeCategoryRepo {
	f := &fakeCategoryRepo{byID: make(map[string]*domain.Category)}
	for _, id := range ids {
		f.byID[id] = &domain.Category{ID: id, Name: "category " + id}
	}
	return f
}

func (f *fakeCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	for _, existing := range f.byID {
		if existing.Name == c.Name {
			return domain.ErrConflict
		}
	}
	c.ID = uuid.NewString()
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

// fakeRequestRepo is an in-memory ParticipationRequestRepository. WithEventLock
// serializes callers on one mutex and restores the previous state when fn fails.
type fakeRequestRepo struct {
	mu       sync.Mutex
	events   *fakeEventRepo
	byID     map[string]*domain.ParticipationRequest
	seq      int
	countErr error
	locked   []string
	// afterList runs inside the transaction once ListByIDs has read its rows.
	afterList func(byID map[string]*domain.ParticipationRequest)
}

func newFakeRequestRepo(events *fakeEventRepo) *fakeRequestRepo {
	return &fakeRequestRepo{events: events, byID: make(map[string]*domain.ParticipationRequest)}
}

// add stores a request directly and returns its id.
func (f *fakeRequestRepo) add(eventID, requesterID string, status domain.RequestStatus) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := domain.NewParticipationRequest(eventID, requesterID, status, time.Now())
	f.insert(req)
	return req.ID
}

func (f *fakeRequestRepo) insert(req *domain.ParticipationRequest) {
	f.seq++
	req.ID = uuid.NewString()
	req.Created = req.Created.Add(time.Duration(f.seq) * time.Millisecond)
	cp := *req
	f.byID[req.ID] = &cp
}

func (f *fakeRequestRepo) status(id string) domain.RequestStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

func (f *fakeRequestRepo) countConfirmed(eventID string) int {
	n := 0
	for _, r := range f.byID {
		if r.EventID == eventID && r.Status == domain.RequestStatusConfirmed {
			n++
		}
	}
	return n
}

func (f *fakeRequestRepo) list(match func(*domain.ParticipationRequest) bool) []*domain.ParticipationRequest {
	out := make([]*domain.ParticipationRequest, 0)
	for _, r := range f.byID {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.ParticipationRequest) int { return a.Created.Compare(b.Created) })
	return out
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *domain.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (f *fakeRequestRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.ParticipationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *domain.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (f *fakeRequestRepo) CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return nil, f.countErr
	}
	counts := make(map[string]int64)
	for _, id := range eventIDs {
		if n := f.countConfirmed(id); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (f *fakeRequestRepo) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.ParticipationRequestTx, event *domain.Event) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := f.events.get(eventID)
	if event == nil {
		return domain.ErrNotFound
	}
	f.locked = append(f.locked, eventID)
	snapshot := make(map[string]*domain.ParticipationRequest, len(f.byID))
	for id, r := range f.byID {
		cp := *r
		snapshot[id] = &cp
	}
	if err := fn(&fakeRequestTx{repo: f}, event); err != nil {
		f.byID = snapshot
		return err
	}
	return nil
}

// fakeRequestTx operates on the repo while its mutex is held by WithEventLock.
type fakeRequestTx struct {
	repo *fakeRequestRepo
}

func (t *fakeRequestTx) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	if t.repo.countErr != nil {
		return 0, t.repo.countErr
	}
	return t.repo.countConfirmed(eventID), nil
}

func (t *fakeRequestTx) ExistsForRequester(ctx context.Context, eventID, requesterID string) (bool, error) {
	for _, r := range t.repo.byID {
		if r.EventID == eventID && r.RequesterID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeRequestTx) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	t.repo.insert(req)
	return nil
}

func (t *fakeRequestTx) ListByIDs(ctx context.Context, eventID string, ids []string) ([]*domain.ParticipationRequest, error) {
	out := t.repo.list(func(r *domain.ParticipationRequest) bool {
		return r.EventID == eventID && slices.Contains(ids, r.ID)
	})
	if t.repo.afterList != nil {
		t.repo.afterList(t.repo.byID)
	}
	return out, nil
}

func (t *fakeRequestTx) SetStatus(ctx context.Context, ids []string, from, to domain.RequestStatus) error {
	for _, id := range ids {
		r, ok := t.repo.byID[id]
		if !ok {
			return errors.New("unknown request")
		}
		if r.Status != from {
			return domain.ErrConflict
		}
		r.Status = to
	}
	return nil
}

func (t *fakeRequestTx) Cancel(ctx context.Context, requestID, requesterID string) (*domain.ParticipationRequest, error) {
	r, ok := t.repo.byID[requestID]
	if !ok || r.RequesterID != requesterID {
		return nil, domain.ErrNotFound
	}
	r.Status = domain.RequestStatusCanceled
	cp := *r
	return &cp, nil
}

func (f *fakeRequestRepo) lockedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.locked)
}

// fakeStats is an in-memory StatsGateway. When block is set QueryHits waits for ctx.
type fakeStats struct {
	mu      sync.Mutex
	rows    []domain.ViewStats
	err     error
	hitErr  error
	block   bool
	queries []domain.StatsQuery
	hits    []domain.Hit
}

func (f *fakeStats) RecordHit(ctx context.Context, hit domain.Hit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, hit)
	return f.hitErr
}

func (f *fakeStats) QueryHits(ctx context.Context, q domain.StatsQuery) ([]domain.ViewStats, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	rows, err, block := f.rows, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return rows, err
}

func (f *fakeStats) recordedHits() []domain.Hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.hits)
}

func (f *fakeStats) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeEmailService records sent decisions and the state of the context each was sent on.
type fakeEmailService struct {
	mu      sync.Mutex
	sent    []*domain.RequestDecisionEmailData
	ctxErrs []error
	err     error
}

func (f *fakeEmailService) SendRequestDecision(ctx context.Context, data *domain.RequestDecisionEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *fakeEmailService) sentDecisions() []*domain.RequestDecisionEmailData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}
