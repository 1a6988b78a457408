package domain

import (
	"context"
	"fmt"
	"time"
)

// EventState is the moderation state of an event.
type EventState string

const (
	EventStatePending   EventState = "PENDING"
	EventStatePublished EventState = "PUBLISHED"
	EventStateCanceled  EventState = "CANCELED"
)

// ParseEventState validates s and returns it as an EventState.
func ParseEventState(s string) (EventState, error) {
	switch st := EventState(s); st {
	case EventStatePending, EventStatePublished, EventStateCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown event state %q", ErrValidation, s)
}

// StateAction is a state change requested together with an event update.
type StateAction string

const (
	StateActionPublish      StateAction = "PUBLISH_EVENT"
	StateActionReject       StateAction = "REJECT_EVENT"
	StateActionSendToReview StateAction = "SEND_TO_REVIEW"
	StateActionCancelReview StateAction = "CANCEL_REVIEW"
)

// Minimum distance between now and the event date.
const (
	MinInitiatorLeadTime = 2 * time.Hour
	MinAdminLeadTime     = time.Hour
)

// Location is the geographic point where an event takes place.
// swagger:model Location
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is an event submitted by its initiator and moderated by administrators.
// PublishedOn is non-nil exactly when State is PUBLISHED.
// swagger:model Event
type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        string     `json:"category_id"`
	InitiatorID       string     `json:"initiator_id"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	State             EventState `json:"state"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on"`
	EventDate         time.Time  `json:"event_date"`
}

// NewEvent returns a PENDING event owned by initiatorID. ID is set by the repository on create.
func NewEvent(initiatorID, title, annotation, description, categoryID string, eventDate time.Time, location Location, paid bool, participantLimit int, requestModeration bool, createdOn time.Time) *Event {
	return &Event{
		Title:             title,
		Annotation:        annotation,
		Description:       description,
		CategoryID:        categoryID,
		InitiatorID:       initiatorID,
		Location:          location,
		Paid:              paid,
		ParticipantLimit:  participantLimit,
		RequestModeration: requestModeration,
		State:             EventStatePending,
		CreatedOn:         createdOn,
		EventDate:         eventDate,
	}
}

// EventUpdate is a partial update of an event. Nil fields are left unchanged.
type EventUpdate struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *string
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	StateAction       *StateAction
}

// EventView is an event decorated with its confirmed participant and view counters.
// swagger:model EventView
type EventView struct {
	Event
	ConfirmedRequests int64 `json:"confirmed_requests"`
	Views             int64 `json:"views"`
}

// EventSort selects the ordering of the public event listing.
type EventSort string

const (
	EventSortDate  EventSort = "EVENT_DATE"
	EventSortViews EventSort = "VIEWS"
)

// EventFilter narrows an event search. Zero-valued fields do not filter.
type EventFilter struct {
	Text          string
	CategoryIDs   []string
	InitiatorIDs  []string
	States        []EventState
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
}

// Validate checks that the date range is not inverted.
func (f EventFilter) Validate() error {
	if f.RangeStart != nil && f.RangeEnd != nil && !f.RangeEnd.After(*f.RangeStart) {
		return fmt.Errorf("%w: range_end must be after range_start", ErrValidation)
	}
	return nil
}

// Visit describes the HTTP request that triggered a public read; it is recorded as a hit.
type Visit struct {
	URI string
	IP  string
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// Update writes every mutable column of event, provided the stored state is still expected.
	// A state that moved on in the meantime returns ErrConflict and writes nothing.
	Update(ctx context.Context, event *Event, expected EventState) error
	// Search returns events matching filter ordered by event date. A nil page returns all matches.
	Search(ctx context.Context, filter EventFilter, page *Page) ([]*Event, error)
	ListByInitiator(ctx context.Context, initiatorID string, page Page) ([]*Event, error)
}

// EventService defines the event lifecycle operations available to initiators and administrators.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) (*EventView, error)
	ListInitiatorEvents(ctx context.Context, initiatorID string, page Page) ([]*EventView, error)
	GetInitiatorEvent(ctx context.Context, initiatorID, eventID string) (*EventView, error)
	UpdateEventByInitiator(ctx context.Context, initiatorID, eventID string, update EventUpdate) (*EventView, error)
	UpdateEventByAdmin(ctx context.Context, eventID string, update EventUpdate) (*EventView, error)
}

// EventListingService defines the public and administrative event queries.
type EventListingService interface {
	SearchPublic(ctx context.Context, filter EventFilter, sort EventSort, page Page, visit Visit) ([]*EventView, error)
	GetPublished(ctx context.Context, eventID string, visit Visit) (*EventView, error)
	SearchAdmin(ctx context.Context, filter EventFilter, page Page) ([]*EventView, error)
}
