package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/whattobuild/internal/analysis"
	"github.com/ayush/whattobuild/internal/auth"
	"github.com/ayush/whattobuild/internal/billing"
	"github.com/ayush/whattobuild/internal/config"
	"github.com/ayush/whattobuild/internal/demand"
	"github.com/ayush/whattobuild/internal/discovery"
	"github.com/ayush/whattobuild/internal/extract"
	"github.com/ayush/whattobuild/internal/ideas"
	"github.com/ayush/whattobuild/internal/logger"
	"github.com/ayush/whattobuild/internal/middleware"
	"github.com/ayush/whattobuild/internal/monitor"
	"github.com/ayush/whattobuild/internal/notify"
	"github.com/ayush/whattobuild/internal/research"
	"github.com/ayush/whattobuild/internal/store"
	"github.com/ayush/whattobuild/internal/unlocker"
)

const serviceName = "whattobuild"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(serviceName, "info")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logger.New(serviceName, cfg.LogLevel)
	cfg.LogSummary(log)
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}
	ledger := billing.NewLedger(pgStore.Pool())

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(context.Background())
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)
	statusBus := store.NewStatusBus(rdb)

	// ── MinIO ────────────────────────────────────────────────
	var exports research.ExportStore
	if cfg.MinioAccessKey != "" {
		exportStore, err := store.NewExportStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("minio connect")
		}
		exports = exportStore
	} else {
		log.Warn().Msg("minio not configured, exports are served inline only")
	}

	// ── Upstream clients ─────────────────────────────────────
	proxy := unlocker.New(unlocker.Options{
		Endpoint:     cfg.BrightDataEndpoint,
		Token:        cfg.BrightDataToken,
		SearchZone:   cfg.BrightDataZone,
		UnlockerZone: cfg.BrightDataUnlockerZone,
		Timeout:      cfg.HTTPTimeout,
	})
	extractor := extract.New(proxy, extract.Options{
		ReaderEndpoint: cfg.JinaEndpoint,
		ReaderAPIKey:   cfg.JinaAPIKey,
		HNEndpoint:     cfg.HNEndpoint,
		Timeout:        cfg.HTTPTimeout,
	}, log)
	llm, err := analysis.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("gemini client")
	}
	analyzer := analysis.New(llm, log)
	estimator := demand.NewEstimator(
		demand.NewSerpAPIProvider(cfg.SerpAPIEndpoint, cfg.SerpAPIKey, cfg.HTTPTimeout),
		demand.NewProxyProvider(proxy),
		log,
	)

	// ── Notifications ────────────────────────────────────────
	mailer := notify.NewQueue(notify.NewSender(notify.Transport{
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPServer:   cfg.SMTPServer,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
		From:         cfg.MailFrom,
		Timeout:      cfg.HTTPTimeout,
	}, log), 0, log)
	templates := notify.NewTemplates(cfg.AppURL)

	// ── Research ─────────────────────────────────────────────
	pipeline := research.NewPipeline(research.PipelineDeps{
		Store:    mongoStore,
		Discover: discovery.New(proxy, log),
		Extract:  extractor,
		Analyze:  analyzer,
		Demand:   estimator,
		Charger:  ledger,
		Events:   statusBus,
	}, log)
	researchSvc := research.NewService(mongoStore, pipeline, ledger, analyzer, exports, cfg.StaleAfter, log)
	monitorSvc := monitor.NewService(mongoStore)
	runner := monitor.NewRunner(mongoStore, pgStore, ledger, pipeline, mailer, templates, log)

	scheduler, err := monitor.NewScheduler(cfg.MonitorSchedule, runner, researchSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	scheduler.Start()

	// ── Handlers ─────────────────────────────────────────────
	if cfg.StripeWebhookSecret == "" {
		log.Warn().Msg("stripe webhook secret not set, webhooks will be rejected")
	}
	authHandler := auth.NewHandler(pgStore, sessions, mailer, templates, log)
	researchHandler := research.NewHandler(researchSvc, statusBus, log)
	monitorHandler := monitor.NewHandler(monitorSvc, log)
	ideasHandler := ideas.NewHandler(mongoStore, mongoStore, log)
	billingHandler := billing.NewHandler(ledger, cfg.StripeWebhookSecret, log)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Export-URL"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)
	})

	// Stripe callback (signed, no session)
	r.Post("/api/webhooks/stripe", billingHandler.Webhook)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))

		r.Route("/api/research", func(r chi.Router) {
			r.Post("/", researchHandler.Create)
			r.Get("/", researchHandler.List)
			r.Get("/{id}", researchHandler.Get)
			r.Get("/{id}/result", researchHandler.Result)
			r.Get("/{id}/events", researchHandler.Events)
			r.Post("/{id}/retry", researchHandler.Retry)
			r.Post("/{id}/regenerate", researchHandler.Regenerate)
			r.Get("/{id}/export.csv", researchHandler.Export)
		})

		r.Route("/api/monitors", func(r chi.Router) {
			r.Get("/", monitorHandler.List)
			r.Post("/", monitorHandler.Create)
			r.Post("/{id}/pause", monitorHandler.Pause)
			r.Post("/{id}/resume", monitorHandler.Resume)
			r.Delete("/{id}", monitorHandler.Delete)
		})

		r.Route("/api/ideas", func(r chi.Router) {
			r.Get("/", ideasHandler.List)
			r.Post("/", ideasHandler.Create)
			r.Patch("/{id}", ideasHandler.Update)
			r.Delete("/{id}", ideasHandler.Delete)
		})

		r.Route("/api/credits", func(r chi.Router) {
			r.Get("/", billingHandler.Credits)
			r.Get("/history", billingHandler.History)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// event streams stay open for the whole run
		WriteTimeout: research.RunDeadline + time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop()
	researchSvc.Wait()
	mailer.Close()
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, took time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", took).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(log)(access(next))
	}
}
