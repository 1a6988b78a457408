package controllers

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"
)

// AdminController serves the administrative endpoints under /admin and the category lookup.
type AdminController struct {
	Logger     *slog.Logger
	Users      domain.UserService
	Categories domain.CategoryService
	Events     domain.EventService
	Listing    domain.EventListingService
}

func NewAdminController(logger *slog.Logger,
	users domain.UserService,
	categories domain.CategoryService,
	events domain.EventService,
	listing domain.EventListingService,
) *AdminController {
	return &AdminController{
		Logger:     logger,
		Users:      users,
		Categories: categories,
		Events:     events,
		Listing:    listing,
	}
}

// CreateUserRequest is the request body for POST /admin/users.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate implements Validator.
func (c CreateUserRequest) Validate() []string {
	var errs []string
	if n := len(strings.TrimSpace(c.Name)); n < 2 || n > 250 {
		errs = append(errs, "name must be between 2 and 250 characters")
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, "invalid email format")
	}
	return errs
}

// CreateCategoryRequest is the request body for POST /admin/categories.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (c CreateCategoryRequest) Validate() []string {
	if n := len(strings.TrimSpace(c.Name)); n < 1 || n > 50 {
		return []string{"name must be between 1 and 50 characters"}
	}
	return nil
}

// UserSuccessResponse is the success response envelope for user endpoints.
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CategorySuccessResponse is the success response envelope for category endpoints.
type CategorySuccessResponse struct {
	Data  *domain.Category  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreateUser godoc
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User data"
// @Success 201 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email taken)"
// @Router /admin/users [post]
func (c *AdminController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user := domain.NewUser(req.Name, req.Email, time.Time{})
	if err := c.Users.Create(r.Context(), user); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// GetUser godoc
// @Summary Get a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID (UUID)"
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userId} [get]
func (c *AdminController) GetUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "userId")
	if !ok {
		return
	}
	user, err := c.Users.GetByID(r.Context(), ids[0])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body CreateCategoryRequest true "Category name"
// @Success 201 {object} controllers.CategorySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (name taken)"
// @Router /admin/categories [post]
func (c *AdminController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	category, err := c.Categories.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, category)
}

// GetCategory godoc
// @Summary Get a category
// @Tags categories
// @Produce json
// @Param catId path string true "Category ID (UUID)"
// @Success 200 {object} controllers.CategorySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /categories/{catId} [get]
func (c *AdminController) GetCategory(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "catId")
	if !ok {
		return
	}
	category, err := c.Categories.GetByID(r.Context(), ids[0])
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// ListEvents godoc
// @Summary Search all events
// @Description Filters by initiators, states, categories and date range. Views are required; a stats outage returns 502.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param users query []string false "Initiator IDs" collectionFormat(csv)
// @Param states query []string false "PENDING, PUBLISHED or CANCELED" collectionFormat(csv)
// @Param categories query []string false "Category IDs" collectionFormat(csv)
// @Param range_start query string false "Start, RFC 3339 or 2006-01-02 15:04:05"
// @Param range_end query string false "End (exclusive), RFC 3339 or 2006-01-02 15:04:05"
// @Param from query int false "Offset (default 0)"
// @Param size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /admin/events [get]
func (c *AdminController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := eventFilterFromQuery(q)
	if err == nil {
		filter.InitiatorIDs, err = helpers.QueryUUIDs(q, "users")
	}
	if err == nil {
		filter.States, err = parseStates(helpers.QueryList(q, "states"))
	}
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := c.Listing.SearchAdmin(r.Context(), filter, helpers.ParsePage(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// UpdateEvent godoc
// @Summary Moderate and edit an event
// @Description Partial update. state_action may be PUBLISH_EVENT or REJECT_EVENT; both require the event to be PENDING.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (state does not allow the action)"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /admin/events/{eventId} [patch]
func (c *AdminController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	update, err := req.toUpdate(domain.StateActionPublish, domain.StateActionReject)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	view, err := c.Events.UpdateEventByAdmin(r.Context(), ids[0], update)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

func parseStates(raw []string) ([]domain.EventState, error) {
	states := make([]domain.EventState, 0, len(raw))
	for _, s := range raw {
		st, err := domain.ParseEventState(strings.ToUpper(s))
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}
