package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventpublisher/internal/domain"
)

const requestColumns = `id, event_id, requester_id, created, status`

// queryer is the subset of *sql.DB and *sql.Tx used by request queries.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type participationRequestRepository struct {
	DB *sql.DB
}

func NewParticipationRequestRepository(db *sql.DB) domain.ParticipationRequestRepository {
	return &participationRequestRepository{
		DB: db,
	}
}

func scanRequest(s rowScanner) (*domain.ParticipationRequest, error) {
	req := &domain.ParticipationRequest{}
	var status string
	if err := s.Scan(&req.ID, &req.EventID, &req.RequesterID, &req.Created, &status); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return req, nil
}

func listRequests(ctx context.Context, q queryer, query string, args ...any) ([]*domain.ParticipationRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reqs := make([]*domain.ParticipationRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *participationRequestRepository) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM participation_requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *participationRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM participation_requests
		WHERE requester_id = $1
		ORDER BY created DESC`
	return listRequests(ctx, r.DB, query, requesterID)
}

func (r *participationRequestRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.ParticipationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM participation_requests
		WHERE event_id = $1
		ORDER BY created ASC`
	return listRequests(ctx, r.DB, query, eventID)
}

func (r *participationRequestRepository) CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	query := `
		SELECT event_id, COUNT(*)
		FROM participation_requests
		WHERE event_id::text = ANY($1) AND status = 'CONFIRMED'
		GROUP BY event_id
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *participationRequestRepository) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.ParticipationRequestTx, event *domain.Event) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}

	if err := fn(&requestTx{tx: tx}, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// requestTx runs request queries inside the transaction opened by WithEventLock.
type requestTx struct {
	tx queryer
}

func (t *requestTx) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM participation_requests WHERE event_id = $1 AND status = 'CONFIRMED'`
	if err := t.tx.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *requestTx) ExistsForRequester(ctx context.Context, eventID, requesterID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM participation_requests WHERE event_id = $1 AND requester_id = $2)`
	if err := t.tx.QueryRowContext(ctx, query, eventID, requesterID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *requestTx) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	query := `
		INSERT INTO participation_requests (event_id, requester_id, created, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query, req.EventID, req.RequesterID, req.Created, string(req.Status)).Scan(&req.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: request already exists", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (t *requestTx) ListByIDs(ctx context.Context, eventID string, ids []string) ([]*domain.ParticipationRequest, error) {
	if len(ids) == 0 {
		return []*domain.ParticipationRequest{}, nil
	}
	query := `SELECT ` + requestColumns + ` FROM participation_requests
		WHERE event_id = $1 AND id::text = ANY($2)
		FOR UPDATE`
	return listRequests(ctx, t.tx, query, eventID, pq.Array(ids))
}

func (t *requestTx) SetStatus(ctx context.Context, ids []string, from, to domain.RequestStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE participation_requests SET status = $1 WHERE id::text = ANY($2) AND status = $3`
	result, err := t.tx.ExecContext(ctx, query, string(to), pq.Array(ids), string(from))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d requests are no longer %s", domain.ErrConflict, int64(len(ids))-rows, len(ids), from)
	}
	return nil
}

func (t *requestTx) Cancel(ctx context.Context, requestID, requesterID string) (*domain.ParticipationRequest, error) {
	query := `UPDATE participation_requests SET status = 'CANCELED'
		WHERE id = $1 AND requester_id = $2
		RETURNING ` + requestColumns
	req, err := scanRequest(t.tx.QueryRowContext(ctx, query, requestID, requesterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}
