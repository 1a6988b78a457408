package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventpublisher/internal/domain"
)

const eventDateLayout = "2006-01-02 15:04"

type requestService struct {
	requestRepo    domain.ParticipationRequestRepository
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
	notifyTimeout  time.Duration
	now            func() time.Time
}

// NewRequestService returns the participation request admission service.
// emailService may be nil, in which case no decision emails are sent.
// Decision emails go out in the background, each batch bounded by notifyTimeout.
func NewRequestService(requestRepo domain.ParticipationRequestRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
	notifyTimeout time.Duration,
) domain.RequestService {
	return &requestService{
		requestRepo:    requestRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
		notifyTimeout:  notifyTimeout,
		now:            time.Now,
	}
}

func (s *requestService) Submit(ctx context.Context, requesterID, eventID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, requesterID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get requester: %w", err)
	}

	var created *domain.ParticipationRequest
	err := s.requestRepo.WithEventLock(ctx, eventID, func(tx domain.ParticipationRequestTx, event *domain.Event) error {
		if event.InitiatorID == requesterID {
			return fmt.Errorf("%w: initiator cannot request participation in own event", domain.ErrConflict)
		}
		if event.State != domain.EventStatePublished {
			return fmt.Errorf("%w: event is not published", domain.ErrConflict)
		}
		exists, err := tx.ExistsForRequester(ctx, eventID, requesterID)
		if err != nil {
			return fmt.Errorf("check existing request: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: request already exists", domain.ErrConflict)
		}
		if event.ParticipantLimit > 0 {
			confirmed, err := tx.CountConfirmed(ctx, eventID)
			if err != nil {
				return fmt.Errorf("count confirmed requests: %w", err)
			}
			if !domain.HasCapacity(event, confirmed) {
				return fmt.Errorf("%w: participant limit reached", domain.ErrConflict)
			}
		}

		req := domain.NewParticipationRequest(eventID, requesterID, domain.InitialRequestStatus(event), s.now())
		if err := tx.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return created, nil
}

func (s *requestService) Cancel(ctx context.Context, requesterID, requestID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req.RequesterID != requesterID {
		return nil, domain.ErrNotFound
	}

	// Status changes of one event, cancellations included, all run under its lock.
	var canceled *domain.ParticipationRequest
	err = s.requestRepo.WithEventLock(ctx, req.EventID, func(tx domain.ParticipationRequestTx, _ *domain.Event) error {
		var err error
		canceled, err = tx.Cancel(ctx, requestID, requesterID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	return canceled, nil
}

func (s *requestService) ListByRequester(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, requesterID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get requester: %w", err)
	}
	reqs, err := s.requestRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

func (s *requestService) ListForEvent(ctx context.Context, initiatorID, eventID string) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.InitiatorID != initiatorID {
		return nil, domain.ErrNotFound
	}
	reqs, err := s.requestRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// BulkUpdate confirms or rejects a batch of pending requests of one event.
// The batch is all-or-nothing: a single non-pending request fails it without changes.
// When confirming beyond the remaining capacity, requests earlier in requestIDs win
// and the rest are canceled.
func (s *requestService) BulkUpdate(ctx context.Context, initiatorID, eventID string, requestIDs []string, action domain.BulkAction) (*domain.BulkUpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	result := &domain.BulkUpdateResult{
		ConfirmedRequests: []*domain.ParticipationRequest{},
		RejectedRequests:  []*domain.ParticipationRequest{},
	}
	var decided *domain.Event
	err := s.requestRepo.WithEventLock(ctx, eventID, func(tx domain.ParticipationRequestTx, event *domain.Event) error {
		if event.InitiatorID != initiatorID {
			return domain.ErrNotFound
		}
		found, err := tx.ListByIDs(ctx, eventID, requestIDs)
		if err != nil {
			return fmt.Errorf("load requests: %w", err)
		}
		batch := orderByIDs(found, requestIDs)
		for _, req := range batch {
			if req.Status != domain.RequestStatusPending {
				return fmt.Errorf("%w: request %s is not pending", domain.ErrValidation, req.ID)
			}
		}

		var confirm, reject []*domain.ParticipationRequest
		switch action {
		case domain.BulkActionReject:
			reject = batch
		case domain.BulkActionConfirm:
			confirmed, err := tx.CountConfirmed(ctx, eventID)
			if err != nil {
				return fmt.Errorf("count confirmed requests: %w", err)
			}
			n := domain.ConfirmableCount(event, confirmed, len(batch))
			confirm, reject = batch[:n], batch[n:]
		default:
			return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, action)
		}

		if err := tx.SetStatus(ctx, requestIDsOf(confirm), domain.RequestStatusPending, domain.RequestStatusConfirmed); err != nil {
			return fmt.Errorf("confirm requests: %w", err)
		}
		if err := tx.SetStatus(ctx, requestIDsOf(reject), domain.RequestStatusPending, domain.RequestStatusCanceled); err != nil {
			return fmt.Errorf("reject requests: %w", err)
		}
		for _, req := range confirm {
			req.Status = domain.RequestStatusConfirmed
		}
		for _, req := range reject {
			req.Status = domain.RequestStatusCanceled
		}
		result.ConfirmedRequests = append(result.ConfirmedRequests, confirm...)
		result.RejectedRequests = append(result.RejectedRequests, reject...)
		decided = event
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	s.notifyDecisions(ctx, decided, result)
	return result, nil
}

// orderByIDs returns the requests of found in the order of ids, skipping unknown and repeated ids.
func orderByIDs(found []*domain.ParticipationRequest, ids []string) []*domain.ParticipationRequest {
	byID := make(map[string]*domain.ParticipationRequest, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	out := make([]*domain.ParticipationRequest, 0, len(found))
	for _, id := range ids {
		if req, ok := byID[id]; ok {
			out = append(out, req)
			delete(byID, id)
		}
	}
	return out
}

func requestIDsOf(reqs []*domain.ParticipationRequest) []string {
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		ids[i] = req.ID
	}
	return ids
}

// notifyDecisions emails every requester of result in the background.
// The send outlives the request and failures are logged only.
func (s *requestService) notifyDecisions(ctx context.Context, event *domain.Event, result *domain.BulkUpdateResult) {
	if s.emailService == nil || event == nil {
		return
	}
	confirmed := make(map[string]bool)
	var requesterIDs []string
	for _, req := range result.ConfirmedRequests {
		confirmed[req.RequesterID] = true
		requesterIDs = append(requesterIDs, req.RequesterID)
	}
	for _, req := range result.RejectedRequests {
		requesterIDs = append(requesterIDs, req.RequesterID)
	}
	if len(requesterIDs) == 0 {
		return
	}

	eventID, title, date := event.ID, event.Title, event.EventDate.Format(eventDateLayout)
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()

		users, err := s.userRepo.ListByIDs(ctx, requesterIDs)
		if err != nil {
			s.logger.WarnContext(ctx, "load requesters for notification", "event_id", eventID, "err", err)
			return
		}
		for _, u := range users {
			data := &domain.RequestDecisionEmailData{
				Email:      u.Email,
				Name:       u.Name,
				EventTitle: title,
				EventDate:  date,
				Confirmed:  confirmed[u.ID],
			}
			if err := s.emailService.SendRequestDecision(ctx, data); err != nil {
				s.logger.WarnContext(ctx, "send request decision email", "event_id", eventID, "user_id", u.ID, "err", err)
			}
		}
	}()
}
