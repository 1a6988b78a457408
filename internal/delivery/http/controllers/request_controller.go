package controllers

import (
	"log/slog"
	"net/http"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"

	"github.com/google/uuid"
)

// RequestController serves participation requests, both the requester's and the organizer's side.
type RequestController struct {
	Logger  *slog.Logger
	Service domain.RequestService
}

func NewRequestController(logger *slog.Logger, svc domain.RequestService) *RequestController {
	return &RequestController{
		Logger:  logger,
		Service: svc,
	}
}

// BulkUpdateRequest is the request body for PATCH /users/{userId}/events/{eventId}/requests.
type BulkUpdateRequest struct {
	RequestIDs []string `json:"request_ids"`
	Status     string   `json:"status"`
}

// Validate implements Validator.
func (b BulkUpdateRequest) Validate() []string {
	var errs []string
	if len(b.RequestIDs) == 0 {
		errs = append(errs, "request_ids is required")
	}
	for _, id := range b.RequestIDs {
		if _, err := uuid.Parse(id); err != nil {
			errs = append(errs, "request_ids must contain UUIDs")
			break
		}
	}
	if _, err := domain.ParseBulkAction(b.Status); err != nil {
		errs = append(errs, "status must be CONFIRMED or REJECTED")
	}
	return errs
}

// RequestSuccessResponse is the success response envelope for endpoints returning one request.
type RequestSuccessResponse struct {
	Data  *domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// RequestListSuccessResponse is the success response envelope for request listings.
type RequestListSuccessResponse struct {
	Data  []*domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

// BulkUpdateSuccessResponse is the success response envelope for a bulk update.
type BulkUpdateSuccessResponse struct {
	Data  *domain.BulkUpdateResult `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// ListOwn godoc
// @Summary List the user's participation requests
// @Tags requests
// @Produce json
// @Param userId path string true "Requester ID (UUID)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/{userId}/requests [get]
func (c *RequestController) ListOwn(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId")
	if !ok {
		return
	}
	reqs, err := c.Service.ListByRequester(r.Context(), ids[0])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reqs)
}

// Submit godoc
// @Summary Request participation in an event
// @Description Creates a request for a published event. It is CONFIRMED right away when the event has no limit or no moderation, otherwise PENDING.
// @Tags requests
// @Produce json
// @Param userId path string true "Requester ID (UUID)"
// @Param eventId query string true "Event ID (UUID)"
// @Success 201 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (own event, unpublished, duplicate or full)"
// @Router /users/{userId}/requests [post]
func (c *RequestController) Submit(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId")
	if !ok {
		return
	}
	eventID, err := uuid.Parse(r.URL.Query().Get("eventId"))
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "eventId query parameter must be a UUID")
		return
	}
	req, err := c.Service.Submit(r.Context(), ids[0], eventID.String())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// Cancel godoc
// @Summary Cancel a participation request
// @Tags requests
// @Produce json
// @Param userId path string true "Requester ID (UUID)"
// @Param requestId path string true "Request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/{userId}/requests/{requestId}/cancel [patch]
func (c *RequestController) Cancel(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId", "requestId")
	if !ok {
		return
	}
	req, err := c.Service.Cancel(r.Context(), ids[0], ids[1])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, req)
}

// ListForEvent godoc
// @Summary List requests for one of the user's events
// @Tags requests
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param eventId path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/{userId}/events/{eventId}/requests [get]
func (c *RequestController) ListForEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId", "eventId")
	if !ok {
		return
	}
	reqs, err := c.Service.ListForEvent(r.Context(), ids[0], ids[1])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reqs)
}

// BulkUpdate godoc
// @Summary Confirm or reject pending requests
// @Description All listed requests must be PENDING. On CONFIRMED, requests are confirmed in the given order until the limit is reached and the rest are rejected.
// @Tags requests
// @Accept json
// @Produce json
// @Param userId path string true "Initiator ID (UUID)"
// @Param eventId path string true "Event ID (UUID)"
// @Param body body BulkUpdateRequest true "Request ids and decision"
// @Success 200 {object} controllers.BulkUpdateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unknown status or request not pending)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/{userId}/events/{eventId}/requests [patch]
func (c *RequestController) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId", "eventId")
	if !ok {
		return
	}
	var req BulkUpdateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	action, _ := domain.ParseBulkAction(req.Status)
	result, err := c.Service.BulkUpdate(r.Context(), ids[0], ids[1], req.RequestIDs, action)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
