package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"student-manager/common/logger"
	commonmetrics "student-manager/common/metrics"
	"student-manager/common/telemetry"
	"student-manager/internal/config"
	"student-manager/internal/db"
	"student-manager/internal/events"
	"student-manager/internal/health"
	"student-manager/internal/kafka"
	"student-manager/internal/messaging"
	"student-manager/internal/metrics"
	"student-manager/internal/observability"
	"student-manager/internal/schema"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config      *config.Config
	router      *gin.Engine
	server      *http.Server
	grpc        *health.GrpcServer
	db          *bun.DB
	publisher   events.Publisher
	telemetry   *telemetry.Telemetry
	flushSentry func()
	stopWatch   context.CancelFunc
	logger      *slog.Logger
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "version", Version, "commit", GitCommit, "build_time", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env, "events_driver", cfg.Events.Driver)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	flushSentry, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, Version)
	if err != nil {
		slogLogger.Warn("failed to initialize Sentry", "error", err)
	}

	ctx := context.Background()

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Env:            cfg.Env,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Interval:       time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second,
	}, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	meter := otel.Meter(ServiceName)
	if err := tel.Metrics.Database.RegisterDB(database.DB, meter); err != nil {
		slogLogger.Warn("failed to register connection pool metrics", "error", err)
	}

	if err := schema.Migrate(ctx, database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	domainMetrics, err := metrics.New(meter)
	if err != nil {
		log.Fatalf("failed to initialize domain metrics: %v", err)
	}

	publisher := newPublisher(cfg.Events, tel.Metrics, slogLogger)

	router := NewRouter(cfg.Server, Dependencies{
		DB:        database,
		Metrics:   tel.Metrics,
		Domain:    domainMetrics,
		Publisher: publisher,
		Logger:    slogLogger,
	})

	slogLogger.Info("application initialized successfully")

	return &App{
		config:      cfg,
		router:      router,
		grpc:        health.NewGrpcServer(database, tel.Metrics, slogLogger),
		db:          database,
		publisher:   publisher,
		telemetry:   tel,
		flushSentry: flushSentry,
		logger:      slogLogger,
	}
}

// newPublisher picks the events backend. A broker that cannot be reached at
// start-up degrades to dropping events rather than failing the service.
func newPublisher(cfg config.EventsConfig, m *commonmetrics.Metrics, logger *slog.Logger) events.Publisher {
	switch cfg.Driver {
	case "nats":
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, logger, m)
		if err != nil {
			logger.Warn("failed to initialize NATS producer, events disabled", "error", err)
			return events.Nop()
		}
		return producer
	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger, m)
		if err != nil {
			logger.Warn("failed to initialize Kafka producer, events disabled", "error", err)
			return events.Nop()
		}
		return producer
	}
	logger.Info("events disabled")
	return events.Nop()
}

func (a *App) Run() error {
	watchCtx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	go a.grpc.Watch(watchCtx, 15*time.Second)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	go func() {
		a.logger.Info("gRPC health server starting", "port", a.config.Grpc.Port)
		if err := a.grpc.Server.Serve(lis); err != nil {
			a.logger.Error("gRPC server error", "error", err)
		}
	}()

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if a.stopWatch != nil {
		a.stopWatch()
	}
	a.grpc.Stop()

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("event publisher close error", "error", err)
	}

	db.Close(a.db)

	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.flushSentry()

	return errors.Join(errs...)
}
