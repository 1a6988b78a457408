package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"eventpublisher/internal/domain"
)

const eventColumns = `id, title, annotation, description, category_id, initiator_id, location_lat, location_lon,
		paid, participant_limit, request_moderation, state, created_on, published_on, event_date`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var state string
	var publishedNull sql.NullTime
	err := s.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit, &e.RequestModeration,
		&state, &e.CreatedOn, &publishedNull, &e.EventDate,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	if publishedNull.Valid {
		e.PublishedOn = &publishedNull.Time
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, annotation, description, category_id, initiator_id, location_lat, location_lon,
			paid, participant_limit, request_moderation, state, created_on, published_on, event_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State), e.CreatedOn, e.PublishedOn, e.EventDate,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event, expected domain.EventState) error {
	query := `
		UPDATE events SET title = $1, annotation = $2, description = $3, category_id = $4,
			location_lat = $5, location_lon = $6, paid = $7, participant_limit = $8,
			request_moderation = $9, state = $10, published_on = $11, event_date = $12
		WHERE id = $13 AND state = $14
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration, string(e.State), e.PublishedOn, e.EventDate, e.ID,
		string(expected),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: event is no longer %s", domain.ErrConflict, expected)
}

func (r *eventRepository) Search(ctx context.Context, f domain.EventFilter, page *domain.Page) ([]*domain.Event, error) {
	where, args := buildEventFilter(f)
	query := `SELECT ` + eventColumns + ` FROM events e`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY e.event_date ASC, e.id ASC`
	if page != nil {
		n := len(args) + 1
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n, n+1)
		args = append(args, page.Size, page.From)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// buildEventFilter turns f into WHERE clauses with positional arguments.
func buildEventFilter(f domain.EventFilter) ([]string, []any) {
	var where []string
	var args []any
	n := 1
	if f.Text != "" {
		where = append(where, fmt.Sprintf("(e.annotation ILIKE $%d OR e.description ILIKE $%d)", n, n))
		args = append(args, "%"+escapeLike(f.Text)+"%")
		n++
	}
	if len(f.CategoryIDs) > 0 {
		where = append(where, fmt.Sprintf("e.category_id::text = ANY($%d)", n))
		args = append(args, pq.Array(f.CategoryIDs))
		n++
	}
	if len(f.InitiatorIDs) > 0 {
		where = append(where, fmt.Sprintf("e.initiator_id::text = ANY($%d)", n))
		args = append(args, pq.Array(f.InitiatorIDs))
		n++
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		where = append(where, fmt.Sprintf("e.state = ANY($%d)", n))
		args = append(args, pq.Array(states))
		n++
	}
	if f.Paid != nil {
		where = append(where, fmt.Sprintf("e.paid = $%d", n))
		args = append(args, *f.Paid)
		n++
	}
	if f.RangeStart != nil {
		where = append(where, fmt.Sprintf("e.event_date >= $%d", n))
		args = append(args, *f.RangeStart)
		n++
	}
	if f.RangeEnd != nil {
		where = append(where, fmt.Sprintf("e.event_date < $%d", n))
		args = append(args, *f.RangeEnd)
		n++
	}
	if f.OnlyAvailable {
		where = append(where, `(e.participant_limit = 0 OR e.participant_limit > (
			SELECT COUNT(*) FROM participation_requests pr WHERE pr.event_id = e.id AND pr.status = 'CONFIRMED'))`)
	}
	return where, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *eventRepository) ListByInitiator(ctx context.Context, initiatorID string, page domain.Page) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE initiator_id = $1
		ORDER BY created_on DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, initiatorID, page.Size, page.From)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}
