package domain

import (
	"fmt"
	"time"
)

// Merge returns a copy of e with every non-nil field of u applied.
// The state action is not interpreted here; see ApplyAdminAction and ApplyInitiatorAction.
func (e Event) Merge(u EventUpdate) Event {
	out := e
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Annotation != nil {
		out.Annotation = *u.Annotation
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.CategoryID != nil {
		out.CategoryID = *u.CategoryID
	}
	if u.EventDate != nil {
		out.EventDate = *u.EventDate
	}
	if u.Location != nil {
		out.Location = *u.Location
	}
	if u.Paid != nil {
		out.Paid = *u.Paid
	}
	if u.ParticipantLimit != nil {
		out.ParticipantLimit = *u.ParticipantLimit
	}
	if u.RequestModeration != nil {
		out.RequestModeration = *u.RequestModeration
	}
	if e.PublishedOn != nil {
		t := *e.PublishedOn
		out.PublishedOn = &t
	}
	return out
}

// ApplyAdminAction moves e through a moderation decision taken at now.
//
//	PUBLISH_EVENT: PENDING -> PUBLISHED, requires the event to start at least MinAdminLeadTime after now
//	REJECT_EVENT:  PENDING -> CANCELED
func (e Event) ApplyAdminAction(action StateAction, now time.Time) (Event, error) {
	out := e
	switch action {
	case StateActionPublish:
		if e.State != EventStatePending {
			return e, fmt.Errorf("%w: cannot publish the event because it is not in the right state: %s", ErrConflict, e.State)
		}
		if e.EventDate.Before(now.Add(MinAdminLeadTime)) {
			return e, fmt.Errorf("%w: event must start at least %s after publication", ErrConflict, MinAdminLeadTime)
		}
		published := now
		out.State = EventStatePublished
		out.PublishedOn = &published
	case StateActionReject:
		if e.State != EventStatePending {
			return e, fmt.Errorf("%w: cannot reject the event because it is not in the right state: %s", ErrConflict, e.State)
		}
		out.State = EventStateCanceled
		out.PublishedOn = nil
	default:
		return e, fmt.Errorf("%w: state action %q is not available to administrators", ErrValidation, action)
	}
	return out, nil
}

// ApplyInitiatorAction moves e through a state change requested by its initiator.
// Published events are never changed by their initiator.
//
//	SEND_TO_REVIEW: CANCELED -> PENDING
//	CANCEL_REVIEW:  PENDING  -> CANCELED
func (e Event) ApplyInitiatorAction(action StateAction) (Event, error) {
	if e.State == EventStatePublished {
		return e, fmt.Errorf("%w: only pending or canceled events can be changed", ErrConflict)
	}
	out := e
	switch action {
	case StateActionSendToReview:
		if e.State == EventStatePending {
			return e, fmt.Errorf("%w: event is already pending review", ErrConflict)
		}
		out.State = EventStatePending
	case StateActionCancelReview:
		if e.State == EventStateCanceled {
			return e, fmt.Errorf("%w: event is already canceled", ErrConflict)
		}
		out.State = EventStateCanceled
	default:
		return e, fmt.Errorf("%w: state action %q is not available to initiators", ErrValidation, action)
	}
	out.PublishedOn = nil
	return out, nil
}

// CheckEventDate returns ErrValidation unless date is at least lead after now.
func CheckEventDate(date, now time.Time, lead time.Duration) error {
	if date.Before(now.Add(lead)) {
		return fmt.Errorf("%w: event_date must be at least %s in the future", ErrValidation, lead)
	}
	return nil
}
