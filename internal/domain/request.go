package domain

import (
	"context"
	"fmt"
	"time"
)

// RequestStatus is the status of a participation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusCanceled  RequestStatus = "CANCELED"
)

// BulkAction is the decision an initiator applies to a batch of pending requests.
type BulkAction string

const (
	BulkActionConfirm BulkAction = "CONFIRMED"
	BulkActionReject  BulkAction = "REJECTED"
)

// ParseBulkAction validates s and returns it as a BulkAction.
func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(s); a {
	case BulkActionConfirm, BulkActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// ParticipationRequest is a user's request to take part in an event.
// swagger:model ParticipationRequest
type ParticipationRequest struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event_id"`
	RequesterID string        `json:"requester_id"`
	Created     time.Time     `json:"created"`
	Status      RequestStatus `json:"status"`
}

// NewParticipationRequest returns a request with the given status. ID is set by the repository on create.
func NewParticipationRequest(eventID, requesterID string, status RequestStatus, created time.Time) *ParticipationRequest {
	return &ParticipationRequest{
		EventID:     eventID,
		RequesterID: requesterID,
		Created:     created,
		Status:      status,
	}
}

// BulkUpdateResult splits the outcome of a bulk update. The two lists are disjoint.
// swagger:model BulkUpdateResult
type BulkUpdateResult struct {
	ConfirmedRequests []*ParticipationRequest `json:"confirmed_requests"`
	RejectedRequests  []*ParticipationRequest `json:"rejected_requests"`
}

// InitialRequestStatus is the status a new request for e starts in.
// Requests are confirmed immediately when the event has no limit or does not moderate requests.
func InitialRequestStatus(e *Event) RequestStatus {
	if e.ParticipantLimit == 0 || !e.RequestModeration {
		return RequestStatusConfirmed
	}
	return RequestStatusPending
}

// HasCapacity reports whether e can take one more confirmed participant.
func HasCapacity(e *Event, confirmed int) bool {
	return e.ParticipantLimit == 0 || confirmed < e.ParticipantLimit
}

// ConfirmableCount returns how many of n pending requests can be confirmed for e
// when confirmed requests already hold seats.
func ConfirmableCount(e *Event, confirmed, n int) int {
	if e.ParticipantLimit == 0 {
		return n
	}
	room := e.ParticipantLimit - confirmed
	if room <= 0 {
		return 0
	}
	return min(room, n)
}

// ParticipationRequestTx is the view of request storage available while the event row is locked.
type ParticipationRequestTx interface {
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	ExistsForRequester(ctx context.Context, eventID, requesterID string) (bool, error)
	Create(ctx context.Context, req *ParticipationRequest) error
	// ListByIDs returns the requests of eventID among ids, in no particular order, and locks their rows.
	ListByIDs(ctx context.Context, eventID string, ids []string) ([]*ParticipationRequest, error)
	// SetStatus moves the requests of ids from status from to status to. If any of them
	// is no longer in from it returns ErrConflict, which must abort the transaction.
	SetStatus(ctx context.Context, ids []string, from, to RequestStatus) error
	// Cancel marks the request of requesterID as CANCELED and returns it.
	// Requests of other requesters are ErrNotFound.
	Cancel(ctx context.Context, requestID, requesterID string) (*ParticipationRequest, error)
}

// ParticipationRequestRepository defines storage operations for participation requests.
type ParticipationRequestRepository interface {
	GetByID(ctx context.Context, id string) (*ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*ParticipationRequest, error)
	ListByEvent(ctx context.Context, eventID string) ([]*ParticipationRequest, error)
	// CountConfirmedByEvents returns the number of CONFIRMED requests per event id. Events without any are absent.
	CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int64, error)
	// WithEventLock runs fn in a transaction holding an exclusive lock on the event row,
	// so admission decisions for one event never interleave. fn receives the event as read
	// under the lock. A missing event returns ErrNotFound; fn's error rolls the transaction back.
	WithEventLock(ctx context.Context, eventID string, fn func(tx ParticipationRequestTx, event *Event) error) error
}

// RequestService defines participation request admission and moderation.
type RequestService interface {
	Submit(ctx context.Context, requesterID, eventID string) (*ParticipationRequest, error)
	Cancel(ctx context.Context, requesterID, requestID string) (*ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*ParticipationRequest, error)
	ListForEvent(ctx context.Context, initiatorID, eventID string) ([]*ParticipationRequest, error)
	BulkUpdate(ctx context.Context, initiatorID, eventID string, requestIDs []string, action BulkAction) (*BulkUpdateResult, error)
}
