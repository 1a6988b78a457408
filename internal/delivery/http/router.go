package http

import (
	"net/http"

	"eventpublisher/internal/delivery/http/controllers"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Admin    *controllers.AdminController
	Events   *controllers.EventController
	Requests *controllers.RequestController
	Public   *controllers.PublicEventController
}

// NewRouter initializes the HTTP router with all application routes.
// requireAdmin wraps every /admin route.
func NewRouter(c Controllers, requireAdmin func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	// Admin
	mux.HandleFunc("POST /admin/users", requireAdmin(c.Admin.CreateUser))
	mux.HandleFunc("GET /admin/users/{userId}", requireAdmin(c.Admin.GetUser))
	mux.HandleFunc("POST /admin/categories", requireAdmin(c.Admin.CreateCategory))
	mux.HandleFunc("GET /admin/events", requireAdmin(c.Admin.ListEvents))
	mux.HandleFunc("PATCH /admin/events/{eventId}", requireAdmin(c.Admin.UpdateEvent))
	mux.HandleFunc("GET /categories/{catId}", c.Admin.GetCategory)

	// Organizer
	mux.HandleFunc("POST /users/{userId}/events", c.Events.CreateEvent)
	mux.HandleFunc("GET /users/{userId}/events", c.Events.ListEvents)
	mux.HandleFunc("GET /users/{userId}/events/{eventId}", c.Events.GetEvent)
	mux.HandleFunc("PATCH /users/{userId}/events/{eventId}", c.Events.UpdateEvent)
	mux.HandleFunc("GET /users/{userId}/events/{eventId}/requests", c.Requests.ListForEvent)
	mux.HandleFunc("PATCH /users/{userId}/events/{eventId}/requests", c.Requests.BulkUpdate)

	// Requester
	mux.HandleFunc("GET /users/{userId}/requests", c.Requests.ListOwn)
	mux.HandleFunc("POST /users/{userId}/requests", c.Requests.Submit)
	mux.HandleFunc("PATCH /users/{userId}/requests/{requestId}/cancel", c.Requests.Cancel)

	// Public
	mux.HandleFunc("GET /events", c.Public.ListEvents)
	mux.HandleFunc("GET /events/{eventId}", c.Public.GetEvent)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
