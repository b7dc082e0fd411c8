package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/optimumsoft/optimumsoft-web/internal/api/router"
	"github.com/optimumsoft/optimumsoft-web/internal/app/bootstrap"
	"github.com/optimumsoft/optimumsoft-web/internal/catalog"
	"github.com/optimumsoft/optimumsoft-web/internal/chatbot"
	appconfig "github.com/optimumsoft/optimumsoft-web/internal/config"
	"github.com/optimumsoft/optimumsoft-web/internal/http/middleware"
	"github.com/optimumsoft/optimumsoft-web/internal/leads"
	"github.com/optimumsoft/optimumsoft-web/internal/observability/metrics"
	"github.com/optimumsoft/optimumsoft-web/internal/site"
	"github.com/optimumsoft/optimumsoft-web/internal/webchat"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting optimumsoft web server",
		"env", cfg.Env,
		"port", cfg.Port,
		"lead_gateway", cfg.LeadGateway,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildDBPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	var dbPinger router.Pinger
	if pool != nil {
		defer pool.Close()
		dbPinger = pool
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	app, err := buildApp(ctx, cfg, deps{
		repo:        bootstrap.BuildLeadRepository(pool, logger),
		redisClient: redisClient,
		dbPinger:    dbPinger,
	}, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	go app.chat.Run(ctx)
	if limiter, ok := app.limiter.(*middleware.MemoryLimiter); ok {
		go limiter.Run(ctx, 5*time.Minute)
	}

	// No WriteTimeout: chat WebSockets are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type deps struct {
	repo        leads.Repository
	redisClient *redis.Client
	dbPinger    router.Pinger
}

type app struct {
	handler http.Handler
	chat    *webchat.Handler
	limiter middleware.Limiter
	metrics *metrics.LeadMetrics
}

// buildApp wires the site, lead capture and chat widget behind one router.
func buildApp(ctx context.Context, cfg *appconfig.Config, d deps, logger *logging.Logger) (*app, error) {
	metricsHandler, leadMetrics := setupMetrics()

	gw, err := bootstrap.BuildLeadGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	repo := d.repo
	if repo == nil {
		repo = leads.NewInMemoryRepository()
	}
	leadService := leads.NewService(gw, repo, leadMetrics, logger.Component("leads"))

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	siteHandler, err := site.NewHandler(cat, logger.Component("site"))
	if err != nil {
		return nil, err
	}

	chat := webchat.NewHandler(
		engineFactory(ctx, cfg, leadService, leadMetrics, logger.Component("chatbot")),
		cfg.ChatSessionIdleTimeout,
		leadMetrics,
		logger.Component("webchat"),
	)

	checks := map[string]router.Pinger{}
	if d.dbPinger != nil {
		checks["postgres"] = d.dbPinger
	}
	if d.redisClient != nil {
		client := d.redisClient
		checks["redis"] = router.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	limiter := bootstrap.BuildFormLimiter(cfg, d.redisClient)
	handler := router.New(&router.Config{
		Logger:             logger,
		SiteHandler:        siteHandler,
		LeadsHandler:       leads.NewHandler(leadService, repo, logger.Component("contact")),
		ChatHandler:        chat,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		FormLimiter:        limiter,
		HealthChecks:       checks,
	})

	return &app{handler: handler, chat: chat, limiter: limiter, metrics: leadMetrics}, nil
}

// engineFactory builds one conversation engine per widget session. Submissions
// run under ctx so shutdown cancels in-flight relays.
func engineFactory(ctx context.Context, cfg *appconfig.Config, submitter chatbot.Submitter, m *metrics.LeadMetrics, logger *logging.Logger) webchat.EngineFactory {
	pacing := chatbot.DefaultPacing()
	if !cfg.ChatPacing {
		pacing = chatbot.NoPacing()
	}
	return func(listener chatbot.Listener) *chatbot.Engine {
		opts := []chatbot.Option{
			chatbot.WithListener(listener),
			chatbot.WithPacing(pacing),
			chatbot.WithObserver(m),
			chatbot.WithLogger(logger),
			chatbot.WithContext(ctx),
			chatbot.WithSubmitTimeout(cfg.LeadRelayTimeout),
		}
		if cfg.ChatOptimisticAck {
			opts = append(opts, chatbot.WithOptimisticAck())
		}
		return chatbot.New(submitter, opts...)
	}
}

// setupMetrics builds a dedicated registry with the lead metrics and Go runtime collectors.
func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}
