package controllers

import (
	"log/slog"
	"net/http"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"
)

// EventController serves the organizer's own events under /users/{userId}/events.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a PENDING event owned by the user. The event date must be at least two hours ahead.
// @Tags organizer-events
// @Accept json
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (user or category)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userId}/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId")
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	view, err := c.Service.CreateEvent(r.Context(), req.toEvent(ids[0]))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, view)
}

// ListEvents godoc
// @Summary List the user's events
// @Description Returns the events initiated by the user, newest first, with views and confirmed requests.
// @Tags organizer-events
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param from query int false "Offset (default 0)"
// @Param size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /users/{userId}/events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId")
	if !ok {
		return
	}
	views, err := c.Service.ListInitiatorEvents(r.Context(), ids[0], helpers.ParsePage(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// GetEvent godoc
// @Summary Get one of the user's events
// @Tags organizer-events
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param eventId path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /users/{userId}/events/{eventId} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId", "eventId")
	if !ok {
		return
	}
	view, err := c.Service.GetInitiatorEvent(r.Context(), ids[0], ids[1])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// UpdateEvent godoc
// @Summary Update one of the user's events
// @Description Partial update of an unpublished event. state_action may be SEND_TO_REVIEW or CANCEL_REVIEW.
// @Tags organizer-events
// @Accept json
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param eventId path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event is published)"
// @Router /users/{userId}/events/{eventId} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId", "eventId")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	update, err := req.toUpdate(domain.StateActionSendToReview, domain.StateActionCancelReview)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	view, err := c.Service.UpdateEventByInitiator(r.Context(), ids[0], ids[1], update)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}
