package routes

import (
	"net/http"

	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/middleware"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
)

// Roles allowed to manage display screens and sign the service out
var screenAdminRoles = []string{"admin", "receptionist", "hospital_admin"}

// Router holds all route handlers. Nil handlers leave their routes
// unregistered, so the streaming replica only serves what it can.
type Router struct {
	mux *http.ServeMux

	queueHandler   *handlers.QueueHandler
	liveHandler    *handlers.LiveHandler
	sseHandler     *handlers.SSEHandler
	screenHandler  *handlers.ScreenHandler
	sessionHandler *handlers.SessionHandler

	auth           middleware.Authenticator
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	queueHandler *handlers.QueueHandler,
	liveHandler *handlers.LiveHandler,
	sseHandler *handlers.SSEHandler,
	screenHandler *handlers.ScreenHandler,
	sessionHandler *handlers.SessionHandler,
	auth middleware.Authenticator,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		queueHandler:   queueHandler,
		liveHandler:    liveHandler,
		sseHandler:     sseHandler,
		screenHandler:  screenHandler,
		sessionHandler: sessionHandler,
		auth:           auth,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if r.queueHandler != nil {
		r.mux.HandleFunc("GET /api/queue/today", r.queueHandler.GetTodayBoard)
		r.mux.HandleFunc("GET /api/queue/patients", r.queueHandler.GetPatientsBoard)
		r.mux.HandleFunc("GET /api/queue/waiting", r.queueHandler.GetWaitingQueue)
		r.mux.HandleFunc("GET /api/reception/dashboard", r.queueHandler.GetReceptionDashboard)
	}

	if r.liveHandler != nil {
		r.mux.HandleFunc("GET /api/queue/live", r.liveHandler.GetLive)
	}

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/queue", r.sseHandler.StreamQueue)
		r.mux.HandleFunc("GET /api/stream/stats", r.sseHandler.GetStats)
	}

	if r.screenHandler != nil {
		r.mux.HandleFunc("GET /api/screens", r.screenHandler.ListScreens)
		r.mux.Handle("POST /api/screens", r.adminOnly(r.screenHandler.CreateScreen))
		r.mux.HandleFunc("GET /api/screens/{id}", r.screenHandler.GetScreen)
		r.mux.Handle("DELETE /api/screens/{id}", r.adminOnly(r.screenHandler.DeleteScreen))
		r.mux.HandleFunc("GET /api/screens/{id}/board", r.screenHandler.GetScreenBoard)
	}

	if r.sessionHandler != nil {
		r.mux.Handle("GET /api/session", r.signedIn(r.sessionHandler.GetSession))
		r.mux.Handle("POST /api/session/logout", r.adminOnly(r.sessionHandler.Logout))
	}

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) adminOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireRole(r.auth, screenAdminRoles...)(h)
}

func (r *Router) signedIn(h http.HandlerFunc) http.Handler {
	return middleware.RequireRole(r.auth)(h)
}
