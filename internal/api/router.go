package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/api/handler"
	apimw "github.com/taskhub/task-management/internal/api/middleware"
	"github.com/taskhub/task-management/internal/auth"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/hub"
	"github.com/taskhub/task-management/internal/service"
)

// Deps carries everything the router needs. Grouped in a struct because the
// HTTP surface touches most of the application.
type Deps struct {
	Auth          *service.AuthService
	Tasks         *service.TaskService
	Notifications *service.NotificationService
	Tokens        *auth.TokenService
	Socket        *hub.Handler
	Registry      prometheus.Gatherer
	ObserveHTTP   func(method, route string, status int, seconds float64)
	Logger        *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(d.Logger))
	if d.ObserveHTTP != nil {
		r.Use(apimw.RequestMetrics(d.ObserveHTTP))
	}

	// --- handler instances ---
	ah := handler.NewAuthHandler(d.Auth, d.Logger)
	th := handler.NewTaskHandler(d.Tasks, d.Logger)
	nh := handler.NewNotificationHandler(d.Notifications, d.Logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	// WebSocket endpoint; carries its own token handshake, so it sits
	// outside the bearer-header middleware.
	r.Get("/ws/notifications", d.Socket.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(apimw.Authenticate(d.Tokens))

			r.Get("/users", ah.ListUsers)

			// Tasks — note: /reorder must be registered before /{id}
			// so chi does not treat the literal string "reorder" as an ID.
			// Mutations additionally require the matching task permission;
			// reads and reordering only need authentication.
			r.Put("/tasks/reorder", th.Reorder)
			r.With(apimw.RequirePermission(domain.PermCreateTask)).Post("/tasks", th.Create)
			r.Get("/tasks", th.List)
			r.Get("/tasks/{id}", th.GetByID)
			r.With(apimw.RequirePermission(domain.PermUpdateTask)).Put("/tasks/{id}", th.Update)
			r.With(apimw.RequirePermission(domain.PermDeleteTask)).Delete("/tasks/{id}", th.Delete)

			// Notification inbox, scoped to the authenticated user.
			r.Put("/notifications/mark-all-read", nh.MarkAllRead)
			r.Get("/notifications", nh.List)
			r.Put("/notifications/{id}/read", nh.MarkRead)
		})
	})

	return r
}
