package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediconnect/mediconnect-platform/cmd/mainconfig"
	"github.com/mediconnect/mediconnect-platform/internal/api/router"
	"github.com/mediconnect/mediconnect-platform/internal/app/bootstrap"
	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/auth"
	"github.com/mediconnect/mediconnect-platform/internal/booking"
	appconfig "github.com/mediconnect/mediconnect-platform/internal/config"
	"github.com/mediconnect/mediconnect-platform/internal/dashboard"
	"github.com/mediconnect/mediconnect-platform/internal/directory"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/hospital"
	httpmiddleware "github.com/mediconnect/mediconnect-platform/internal/http/middleware"
	"github.com/mediconnect/mediconnect-platform/internal/notify"
	"github.com/mediconnect/mediconnect-platform/internal/observability/metrics"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

var version = "dev"

var errMissingJWTSecret = errors.New("api: AUTH_JWT_SECRET is required")

const (
	draftSweepInterval   = time.Minute
	rateSweepInterval    = 5 * time.Minute
	sessionSweepInterval = time.Minute
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting mediconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"document_store", cfg.DocumentStore,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := buildApp(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.close()

	var workers sync.WaitGroup
	for _, run := range a.workers {
		workers.Add(1)
		go func(run func(context.Context)) {
			defer workers.Done()
			run(ctx)
		}(run)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	stop()
	workers.Wait()

	logger.Info("server stopped")
}

// app is the assembled API process.
type app struct {
	handler http.Handler
	workers []func(context.Context)
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry) (*app, error) {
	if strings.TrimSpace(cfg.AuthJWTSecret) == "" {
		return nil, errMissingJWTSecret
	}

	a := &app{}
	platformMetrics := metrics.NewPlatformMetrics(reg)

	var awsCfg *aws.Config
	if cfg.UsesAWS() {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		awsCfg = &loaded
	}

	rawStore, closeStore, err := bootstrap.BuildDocumentStore(ctx, cfg, awsCfg, logger.Component("docstore"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	store := docstore.NewObserved(rawStore, platformMetrics)

	if cfg.SeedSampleData {
		if err := bootstrap.SeedSampleData(ctx, store, cfg.SeedOperatorPassword, logger); err != nil {
			a.close()
			return nil, err
		}
	}

	audit, auditDB, err := bootstrap.BuildAuditService(cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if auditDB != nil {
		a.closers = append(a.closers, func() { _ = auditDB.Close() })
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}
	sessionStore, notifier := bootstrap.BuildSessionBackends(redisClient)
	sessions := session.NewManager(sessionStore, notifier, cfg.SessionTTL, logger.Component("session"))
	a.workers = append(a.workers, func(ctx context.Context) {
		if err := sessions.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session revocation listener stopped", "error", err)
		}
	})
	a.workers = append(a.workers, func(ctx context.Context) { sessions.RunSweeper(ctx, sessionSweepInterval) })
	tokens := auth.NewTokenIssuer(cfg.AuthJWTSecret)

	mailer := notify.NewMailer(bootstrap.BuildEmailSender(cfg, awsCfg, logger.Component("notify")))
	publisher := bootstrap.BuildPublisher(cfg, awsCfg)

	limiter := httpmiddleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	a.workers = append(a.workers, func(ctx context.Context) { limiter.RunSweeper(ctx, rateSweepInterval) })

	directorySvc := directory.NewService(store, logger.Component("directory"))
	appointmentSvc := appointments.NewService(store, logger.Component("appointments"))

	drafts := booking.NewDrafts()
	a.workers = append(a.workers, func(ctx context.Context) { drafts.RunSweeper(ctx, draftSweepInterval, cfg.SessionTTL) })
	bookingCfg := booking.ServiceConfig{
		Drafts:    drafts,
		Directory: directorySvc,
		Metrics:   platformMetrics,
		Logger:    logger.Component("booking"),
	}
	if cfg.PersistBookings {
		bookingCfg.Recorder = appointments.NewRecorder(store, publisher, logger.Component("appointments"))
	}
	bookingSvc := booking.NewService(bookingCfg)

	feed := hospital.NewFeed(allowOrigins(cfg.CORSAllowedOrigins), logger.Component("feed"))
	hospitalSvc := hospital.NewService(hospital.ServiceConfig{
		Store:        store,
		Appointments: appointmentSvc,
		Board:        hospital.NewBoard(),
		Feed:         feed,
		Publisher:    publisher,
		Auditor:      audit,
		Mailer:       mailer,
		Metrics:      platformMetrics,
		Logger:       logger.Component("hospital"),
	})

	patientNav := dashboard.NewNavigator(dashboard.PatientShell())

	a.handler = router.New(&router.Config{
		Logger:   logger,
		Tokens:   tokens,
		Sessions: sessions,
		AuthHandler: auth.NewHandler(auth.HandlerConfig{
			Provider: auth.NewLocalProvider(store),
			Sessions: sessions,
			Tokens:   tokens,
			Audit:    audit,
			Welcome:  mailer,
			Metrics:  platformMetrics,
			Logger:   logger.Component("auth"),
		}),
		AuthLimiter:        limiter,
		PatientNav:         dashboard.NewHandler(patientNav),
		HospitalNav:        dashboard.NewHandler(dashboard.NewNavigator(dashboard.HospitalShell())),
		DirectoryHandler:   directory.NewHandler(directorySvc, platformMetrics, logger.Component("directory")),
		BookingHandler:     booking.NewHandler(bookingSvc, logger.Component("booking")).WithNavigator(patientNav),
		AppointmentHandler: appointments.NewHandler(appointmentSvc),
		HospitalHandler:    hospital.NewHandler(hospitalSvc, feed, logger.Component("hospital")),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Gatherer:           reg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Version:            version,
	})
	return a, nil
}

// allowOrigins returns the websocket origin check for the configured CORS
// list. An empty list keeps the same-host default.
func allowOrigins(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := allowed[r.Header.Get("Origin")]
		return ok
	}
}
