package controllers

import (
	"log/slog"
	"net/http"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"
)

// PublicEventController serves the anonymous event catalogue. Every call is recorded as a hit.
type PublicEventController struct {
	Logger  *slog.Logger
	Service domain.EventListingService
}

func NewPublicEventController(logger *slog.Logger, svc domain.EventListingService) *PublicEventController {
	return &PublicEventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary Search published events
// @Description Without range_start and range_end only future events are returned. sort=VIEWS orders by views, otherwise by event date.
// @Tags public-events
// @Produce json
// @Param text query string false "Substring of annotation or description (case-insensitive)"
// @Param categories query []string false "Category IDs" collectionFormat(csv)
// @Param paid query bool false "Paid events only (true) or free only (false)"
// @Param range_start query string false "Start, RFC 3339 or 2006-01-02 15:04:05"
// @Param range_end query string false "End (exclusive), RFC 3339 or 2006-01-02 15:04:05"
// @Param only_available query bool false "Only events with free seats"
// @Param sort query string false "EVENT_DATE or VIEWS"
// @Param from query int false "Offset (default 0)"
// @Param size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *PublicEventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := eventFilterFromQuery(q)
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort := domain.EventSort(q.Get("sort"))
	switch sort {
	case "", domain.EventSortDate, domain.EventSortViews:
	default:
		helpers.WriteErrorf(w, http.StatusBadRequest, "invalid sort: %q", sort)
		return
	}
	views, err := c.Service.SearchPublic(r.Context(), filter, sort, helpers.ParsePage(r), visitOf(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// GetEvent godoc
// @Summary Get a published event
// @Tags public-events
// @Produce json
// @Param eventId path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventId} [get]
func (c *PublicEventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	view, err := c.Service.GetPublished(r.Context(), ids[0], visitOf(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

func visitOf(r *http.Request) domain.Visit {
	return domain.Visit{URI: r.URL.Path, IP: helpers.ClientIP(r)}
}
