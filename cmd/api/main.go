package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_crm_backend/internal/activity"
	activityhandler "estate_crm_backend/internal/activity/handler"
	"estate_crm_backend/internal/adapters/storage"
	"estate_crm_backend/internal/auth"
	authhandler "estate_crm_backend/internal/auth/handler"
	"estate_crm_backend/internal/calendar"
	calendarhandler "estate_crm_backend/internal/calendar/handler"
	"estate_crm_backend/internal/calendar/scheduling"
	"estate_crm_backend/internal/contacts"
	contactshandler "estate_crm_backend/internal/contacts/handler"
	"estate_crm_backend/internal/email"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/http/router"
	"estate_crm_backend/internal/leads"
	"estate_crm_backend/internal/notification"
	"estate_crm_backend/internal/properties"
	"estate_crm_backend/internal/properties/documents"
	propertieshandler "estate_crm_backend/internal/properties/handler"
	"estate_crm_backend/internal/scheduler"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/db"
	platformevents "estate_crm_backend/platform/events"
	"estate_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules. Publishes are
	// invalidation hints only; all side effects run inside the sagas.
	eventBus := platformevents.NewInMemoryBus(log)

	reminderClient := initReminderClient(cfg, log)
	defer reminderClient.Close()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Object storage for property documents (MinIO). A nil client disables
	// the document endpoints gracefully.
	storageClient, err := storage.New(cfg)
	if err != nil {
		log.Error("failed to initialize object storage", "error", err)
		panic("failed to initialize object storage: " + err.Error())
	}
	if storageClient != nil {
		bucket := cfg.GetMinioBucketPropertyDocuments()
		if err := withRetry(ctx, log, "ensure property-documents bucket", 5, 2*time.Second, func() error {
			return storageClient.EnsureBucket(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		log.Info("object storage initialized", "bucket", bucket)
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg)
	authModule.AttachRoutes(authhandler.New(authModule.Service()))

	// The auth repository doubles as the agent directory for email delivery.
	notificationModule := notification.NewModule(pool, sender, authModule.Repository(), log)
	dispatcher := notificationModule.Dispatcher()

	activityModule := activity.NewModule(pool, eventBus, log)
	activityModule.AttachRoutes(activityhandler.New(activityModule.Service()))

	contactsModule := contacts.NewModule(pool, eventBus, log)
	contactsModule.AttachRoutes(contactshandler.New(contactsModule.Service()))

	calendarModule := calendar.NewModule(pool)
	schedulingService := scheduling.NewService(calendarModule.Repository(),
		activityModule.Service(), dispatcher, reminderClient, eventBus, log)
	calendarModule.AttachRoutes(calendarhandler.New(schedulingService))

	leadsModule := leads.NewModule(pool, contactsModule.Service(), schedulingService,
		activityModule.Service(), dispatcher, eventBus, log)

	propertiesModule := properties.NewModule(pool, leadsModule.Service(), schedulingService,
		activityModule.Service(), dispatcher, eventBus, log)
	documentsService := documents.NewService(documents.NewRepository(pool), storageClient,
		activityModule.Service(), dispatcher, cfg.GetMinioBucketPropertyDocuments())
	propertiesModule.AttachRoutes(propertieshandler.New(propertiesModule.Service(), documentsService))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			contactsModule,
			propertiesModule,
			calendarModule,
			activityModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initReminderClient builds the asynq enqueuer. A nil client is a valid
// no-op enqueuer, so startup continues without Redis.
func initReminderClient(cfg config.SchedulerConfig, log *logger.Logger) *scheduler.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; calendar reminders disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder client", "error", err)
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
