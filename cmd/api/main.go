// Command api is the miGestor HTTP server. It also runs the recurring
// invoice scheduler unless SCHEDULER_ENABLED is false.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/config"
	"github.com/anayu15/mi-gestor-sub003/internal/handler"
	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/middleware"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
	"github.com/anayu15/mi-gestor-sub003/internal/scheduler"
	"github.com/anayu15/mi-gestor-sub003/internal/server"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// authFloor is the minimum duration of a rejected authentication.
const authFloor = 200 * time.Millisecond

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to redis")

	recorder := metrics.NewPrometheus()
	routes, templates := newRoutes(repo, cacheClient, recorder, cfg, logger)

	r := setupRouter(routes, repo, cacheClient, recorder, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if cfg.SchedulerEnabled {
		sched := scheduler.New(
			templates,
			scheduler.RedisLocker{Cache: cacheClient},
			cfg.SchedulerInterval,
			cfg.SchedulerLockTTL,
			recorder,
			logger,
		)
		go func() {
			if err := sched.Run(ctx); err != nil {
				logger.Error("scheduler exited", "error", err)
			}
		}()
		srv.OnShutdown("scheduler", sched.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"timezone", cfg.Timezone,
		"scheduler", cfg.SchedulerEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "migestor")
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newRoutes builds the services and their handlers. The template service
// is returned as well since the scheduler drives it.
func newRoutes(
	repo *repository.Repository,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) (*routes, *service.TemplateService) {
	today := service.SystemClock(cfg.Location())

	keyEnv := auth.EnvLive
	if !cfg.IsProduction() {
		keyEnv = auth.EnvTest
	}

	accounts := service.NewAccountService(repo, cacheClient, keyEnv, logger)
	clients := service.NewClientService(repo, cacheClient, logger)
	profiles := service.NewBillingProfileService(repo, logger)
	invoices := service.NewInvoiceService(repo, cacheClient, today, recorder, logger)
	expenses := service.NewExpenseService(repo, cacheClient, logger)
	templates := service.NewTemplateService(repo, cacheClient, today, cfg.SchedulerMaxCatchUp, recorder, logger)
	documents := service.NewDocumentService(repo, cacheClient, logger)
	fiscal := service.NewFiscalService(repo, cacheClient, logger)
	reports := service.NewReportService(repo, cacheClient, cfg.ReportCacheTTL, recorder, logger)

	return &routes{
		index:     handler.New(),
		health:    handler.NewHealthHandler(map[string]handler.HealthChecker{"database": repo, "redis": cacheClient}, logger),
		accounts:  handler.NewAccountHandler(accounts, logger),
		clients:   handler.NewClientHandler(clients, logger),
		profiles:  handler.NewBillingProfileHandler(profiles, logger),
		invoices:  handler.NewInvoiceHandler(invoices, logger),
		expenses:  handler.NewExpenseHandler(expenses, logger),
		templates: handler.NewTemplateHandler(templates, logger),
		documents: handler.NewDocumentHandler(documents, logger),
		fiscal:    handler.NewFiscalHandler(fiscal, logger),
		tax:       handler.NewTaxHandler(reports, today, logger),
	}, templates
}

type routes struct {
	index     *handler.Handler
	health    *handler.HealthHandler
	accounts  *handler.AccountHandler
	clients   *handler.ClientHandler
	profiles  *handler.BillingProfileHandler
	invoices  *handler.InvoiceHandler
	expenses  *handler.ExpenseHandler
	templates *handler.TemplateHandler
	documents *handler.DocumentHandler
	fiscal    *handler.FiscalHandler
	tax       *handler.TaxHandler
}

func setupRouter(
	h *routes,
	keys middleware.KeyStore,
	cacheClient *cache.Cache,
	recorder *metrics.PrometheusRecorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Handle("/metrics", recorder.Handler())
	r.Get("/", h.index.Index)

	authCfg := middleware.AuthConfig{
		Logger:      logger,
		Keys:        keys,
		Cache:       cacheClient,
		MinDuration: authFloor,
	}
	rateCfg := middleware.RateLimitConfig{
		Logger:     logger,
		Limiter:    cacheClient,
		APIEnabled: cfg.RateLimitAPIEnabled,
		IPEnabled:  cfg.RateLimitPublicEnabled,
		IPRPS:      cfg.RateLimitPublicRPS,
		IPBurst:    cfg.RateLimitPublicBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateCfg))
			r.Post("/auth/register", h.accounts.Register)
			r.Post("/auth/login", h.accounts.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateCfg))

			read := r.With(middleware.RequireRead())
			write := r.With(middleware.RequireWrite())
			admin := r.With(middleware.RequireAdmin())

			read.Get("/api-keys", h.accounts.ListKeys)
			admin.Post("/api-keys", h.accounts.CreateKey)
			admin.Delete("/api-keys/{id}", h.accounts.RevokeKey)
			admin.Post("/api-keys/{id}/rotate", h.accounts.RotateKey)

			read.Get("/clients", h.clients.List)
			read.Get("/clients/{id}", h.clients.Get)
			write.Post("/clients", h.clients.Create)
			write.Put("/clients/{id}", h.clients.Update)
			write.Delete("/clients/{id}", h.clients.Delete)
			write.Post("/clients/{id}/activate", h.clients.Activate)
			write.Post("/clients/{id}/deactivate", h.clients.Deactivate)

			read.Get("/billing-profiles", h.profiles.List)
			read.Get("/billing-profiles/{id}", h.profiles.Get)
			write.Post("/billing-profiles", h.profiles.Create)
			write.Put("/billing-profiles/{id}", h.profiles.Update)
			write.Delete("/billing-profiles/{id}", h.profiles.Delete)
			write.Post("/billing-profiles/{id}/activate", h.profiles.Activate)

			read.Get("/invoices", h.invoices.List)
			read.Get("/invoices/{id}", h.invoices.Get)
			write.Post("/invoices", h.invoices.Create)
			write.Put("/invoices/{id}", h.invoices.Update)
			write.Delete("/invoices/{id}", h.invoices.Delete)
			write.Post("/invoices/{id}/pay", h.invoices.Pay)
			write.Post("/invoices/{id}/unpay", h.invoices.Unpay)
			write.Post("/invoices/{id}/cancel", h.invoices.Cancel)

			read.Get("/expenses", h.expenses.List)
			read.Get("/expenses/{id}", h.expenses.Get)
			write.Post("/expenses", h.expenses.Create)
			write.Put("/expenses/{id}", h.expenses.Update)
			write.Delete("/expenses/{id}", h.expenses.Delete)

			read.Get("/recurring-templates", h.templates.List)
			write.Post("/recurring-templates", h.templates.Create)
			write.Post("/recurring-templates/preview", h.templates.PreviewSchedule)
			write.Post("/recurring-templates/process-due", h.templates.ProcessDue)
			read.Get("/recurring-templates/{id}", h.templates.Get)
			write.Put("/recurring-templates/{id}", h.templates.Update)
			write.Delete("/recurring-templates/{id}", h.templates.Delete)
			write.Post("/recurring-templates/{id}/pause", h.templates.Pause)
			write.Post("/recurring-templates/{id}/resume", h.templates.Resume)
			write.Post("/recurring-templates/{id}/generate", h.templates.Generate)
			write.Post("/recurring-templates/{id}/backfill", h.templates.Backfill)
			read.Get("/recurring-templates/{id}/preview", h.templates.Preview)
			read.Get("/recurring-templates/{id}/gaps", h.templates.Gaps)

			read.Get("/documents", h.documents.List)
			read.Get("/documents/{id}", h.documents.Get)
			write.Post("/documents", h.documents.Create)
			write.Patch("/documents/{id}", h.documents.Update)
			write.Delete("/documents/{id}", h.documents.Delete)
			write.Post("/documents/{id}/ocr", h.documents.AttachOCR)
			write.Post("/documents/{id}/expense", h.documents.ConvertToExpense)

			read.Get("/fiscal-preferences", h.fiscal.Get)
			read.Get("/fiscal-preferences/modelos", h.fiscal.Modelos)
			write.Put("/fiscal-preferences", h.fiscal.Update)

			read.Get("/tax/summary", h.tax.Summary)
			read.Get("/tax/calendar", h.tax.Calendar)
			read.Get("/tax/modelo-{modelo}", h.tax.Modelo)
		})
	})

	r.NotFound(h.index.NotFound)
	r.MethodNotAllowed(h.index.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if parsed.User != nil {
		if name := parsed.User.Username(); name != "" {
			parsed.User = url.User(name)
		} else {
			parsed.User = url.User("redacted")
		}
	}
	return parsed.String()
}

// sanitizeError strips connection strings and passwords from err.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}
	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
