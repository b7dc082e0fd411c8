package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/optimumsoft/optimumsoft-web/internal/http/middleware"
	"github.com/optimumsoft/optimumsoft-web/internal/leads"
	"github.com/optimumsoft/optimumsoft-web/internal/site"
	"github.com/optimumsoft/optimumsoft-web/internal/webchat"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SiteHandler        *site.Handler
	LeadsHandler       *leads.Handler
	ChatHandler        *webchat.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// FormLimiter throttles POST /api/contact per client IP. Nil disables it.
	FormLimiter httpmiddleware.Limiter

	// Dependencies reported by /health, keyed by name.
	HealthChecks map[string]Pinger
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// The WebSocket upgrade must not sit behind the compressor.
	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/ws", cfg.ChatHandler.HandleWebSocket)
			chat.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)
			chat.Post("/sessions", cfg.ChatHandler.HandleOpen)
			chat.Post("/message", cfg.ChatHandler.HandleMessage)
			chat.Get("/history", cfg.ChatHandler.HandleHistory)
			chat.Post("/close", cfg.ChatHandler.HandleClose)
		})
	}

	r.Group(func(public chi.Router) {
		public.Use(middleware.Compress(5))

		if cfg.LeadsHandler != nil {
			contact := public.With()
			if cfg.FormLimiter != nil {
				contact = public.With(httpmiddleware.RateLimit(cfg.FormLimiter, cfg.Logger))
			}
			contact.Post("/api/contact", cfg.LeadsHandler.SubmitContact)
		}

		if cfg.SiteHandler != nil {
			public.Get("/api/services", cfg.SiteHandler.ListServices)
			public.Get("/api/services/{id}", cfg.SiteHandler.GetService)
			public.Get("/api/careers", cfg.SiteHandler.ListCareers)
			public.Get("/api/routes", cfg.SiteHandler.ListRoutes)
			public.Get(site.RevealScriptPath, cfg.SiteHandler.HandleRevealJS)
			public.Get("/", cfg.SiteHandler.ServePage)
			public.Get("/*", cfg.SiteHandler.ServePage)
		}
	})

	// Lead inbox, protected by an HMAC JWT carrying the admin role.
	if cfg.AdminAuthSecret != "" && cfg.LeadsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/leads/{id}", cfg.LeadsHandler.GetLead)
		})
	}

	if cfg.SiteHandler != nil {
		r.NotFound(cfg.SiteHandler.NotFound)
	}

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Checks = make(map[string]string, len(checks))
			for name, p := range checks {
				if err := p.Ping(ctx); err != nil {
					resp.Checks[name] = "unavailable"
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
