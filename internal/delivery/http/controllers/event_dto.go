package controllers

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"

	"github.com/google/uuid"
)

// Text length bounds for event fields.
const (
	titleMin       = 3
	titleMax       = 120
	annotationMin  = 20
	annotationMax  = 2000
	descriptionMin = 20
	descriptionMax = 7000
)

// CreateEventRequest is the request body for POST /users/{userId}/events.
type CreateEventRequest struct {
	Title             string           `json:"title"`
	Annotation        string           `json:"annotation"`
	Description       string           `json:"description"`
	CategoryID        string           `json:"category_id"`
	EventDate         *time.Time       `json:"event_date"`
	Location          *domain.Location `json:"location"`
	Paid              bool             `json:"paid"`
	ParticipantLimit  int              `json:"participant_limit"`
	RequestModeration *bool            `json:"request_moderation"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	errs = checkText(errs, "title", &c.Title, titleMin, titleMax)
	errs = checkText(errs, "annotation", &c.Annotation, annotationMin, annotationMax)
	errs = checkText(errs, "description", &c.Description, descriptionMin, descriptionMax)
	if _, err := uuid.Parse(c.CategoryID); err != nil {
		errs = append(errs, "category_id must be a UUID")
	}
	if c.EventDate == nil {
		errs = append(errs, "event_date is required")
	}
	if c.Location == nil {
		errs = append(errs, "location is required")
	} else {
		errs = checkLocation(errs, *c.Location)
	}
	if c.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must not be negative")
	}
	return errs
}

// toEvent builds a PENDING event for initiatorID. Request moderation defaults to on.
func (c CreateEventRequest) toEvent(initiatorID string) *domain.Event {
	moderation := true
	if c.RequestModeration != nil {
		moderation = *c.RequestModeration
	}
	return domain.NewEvent(initiatorID,
		strings.TrimSpace(c.Title),
		strings.TrimSpace(c.Annotation),
		strings.TrimSpace(c.Description),
		c.CategoryID,
		c.EventDate.UTC(),
		*c.Location,
		c.Paid,
		c.ParticipantLimit,
		moderation,
		time.Time{},
	)
}

// UpdateEventRequest is the request body for the organizer and admin PATCH endpoints.
// All fields are optional; omitted fields keep their value.
type UpdateEventRequest struct {
	Title             *string          `json:"title"`
	Annotation        *string          `json:"annotation"`
	Description       *string          `json:"description"`
	CategoryID        *string          `json:"category_id"`
	EventDate         *time.Time       `json:"event_date"`
	Location          *domain.Location `json:"location"`
	Paid              *bool            `json:"paid"`
	ParticipantLimit  *int             `json:"participant_limit"`
	RequestModeration *bool            `json:"request_moderation"`
	StateAction       *string          `json:"state_action"`
}

// Validate implements Validator. It checks formats only; which state actions an actor may use
// is decided by the handler.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Title != nil {
		errs = checkText(errs, "title", u.Title, titleMin, titleMax)
	}
	if u.Annotation != nil {
		errs = checkText(errs, "annotation", u.Annotation, annotationMin, annotationMax)
	}
	if u.Description != nil {
		errs = checkText(errs, "description", u.Description, descriptionMin, descriptionMax)
	}
	if u.CategoryID != nil {
		if _, err := uuid.Parse(*u.CategoryID); err != nil {
			errs = append(errs, "category_id must be a UUID")
		}
	}
	if u.Location != nil {
		errs = checkLocation(errs, *u.Location)
	}
	if u.ParticipantLimit != nil && *u.ParticipantLimit < 0 {
		errs = append(errs, "participant_limit must not be negative")
	}
	return errs
}

// toUpdate converts the body to a domain update, accepting only the given state actions.
func (u UpdateEventRequest) toUpdate(allowed ...domain.StateAction) (domain.EventUpdate, error) {
	update := domain.EventUpdate{
		CategoryID:        u.CategoryID,
		Location:          u.Location,
		Paid:              u.Paid,
		ParticipantLimit:  u.ParticipantLimit,
		RequestModeration: u.RequestModeration,
	}
	update.Title = trimmed(u.Title)
	update.Annotation = trimmed(u.Annotation)
	update.Description = trimmed(u.Description)
	if u.EventDate != nil {
		d := u.EventDate.UTC()
		update.EventDate = &d
	}
	if u.StateAction != nil {
		action := domain.StateAction(*u.StateAction)
		ok := false
		for _, a := range allowed {
			if a == action {
				ok = true
				break
			}
		}
		if !ok {
			return domain.EventUpdate{}, fmt.Errorf("%w: state_action %q is not allowed here", domain.ErrValidation, *u.StateAction)
		}
		update.StateAction = &action
	}
	return update, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func checkText(errs []string, field string, value *string, minLen, maxLen int) []string {
	v := strings.TrimSpace(*value)
	if v == "" {
		return append(errs, field+" is required")
	}
	if n := utf8.RuneCountInString(v); n < minLen || n > maxLen {
		errs = append(errs, fmt.Sprintf("%s must be between %d and %d characters", field, minLen, maxLen))
	}
	return errs
}

func checkLocation(errs []string, loc domain.Location) []string {
	if loc.Lat < -90 || loc.Lat > 90 {
		errs = append(errs, "location.lat must be between -90 and 90")
	}
	if loc.Lon < -180 || loc.Lon > 180 {
		errs = append(errs, "location.lon must be between -180 and 180")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.EventView `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for event listings.
type EventListSuccessResponse struct {
	Data  []*domain.EventView `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// eventFilterFromQuery reads the filter parameters shared by the public and admin listings.
func eventFilterFromQuery(q url.Values) (domain.EventFilter, error) {
	var f domain.EventFilter
	var err error
	f.Text = strings.TrimSpace(q.Get("text"))
	if f.CategoryIDs, err = helpers.QueryUUIDs(q, "categories"); err != nil {
		return f, err
	}
	if f.Paid, err = helpers.QueryBool(q, "paid"); err != nil {
		return f, err
	}
	if f.RangeStart, err = helpers.QueryTime(q, "range_start"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = helpers.QueryTime(q, "range_end"); err != nil {
		return f, err
	}
	available, err := helpers.QueryBool(q, "only_available")
	if err != nil {
		return f, err
	}
	f.OnlyAvailable = available != nil && *available
	return f, nil
}
