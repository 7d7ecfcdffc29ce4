package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "privatezone-backend/cmd/api"
	authRepo "privatezone-backend/internal/auth/repository"
	authUsecase "privatezone-backend/internal/auth/usecase"
	calendarDelivery "privatezone-backend/internal/calendar/delivery"
	calendarRepo "privatezone-backend/internal/calendar/repository"
	calendarUsecase "privatezone-backend/internal/calendar/usecase"
	emailDelivery "privatezone-backend/internal/email/delivery"
	emailRepo "privatezone-backend/internal/email/repository"
	emailUsecase "privatezone-backend/internal/email/usecase"
	integrationDelivery "privatezone-backend/internal/integration/delivery"
	intdomain "privatezone-backend/internal/integration/domain"
	integrationRepo "privatezone-backend/internal/integration/repository"
	"privatezone-backend/internal/integration/tokenguard"
	integrationUsecase "privatezone-backend/internal/integration/usecase"
	"privatezone-backend/internal/notification"
	taskDelivery "privatezone-backend/internal/task/delivery"
	taskRepo "privatezone-backend/internal/task/repository"
	"privatezone-backend/internal/task/scheduler"
	taskUsecase "privatezone-backend/internal/task/usecase"
	"privatezone-backend/pkg/config"
	"privatezone-backend/pkg/database"
	"privatezone-backend/pkg/events"
	"privatezone-backend/pkg/fcm"
	"privatezone-backend/pkg/gauth"
	"privatezone-backend/pkg/gcalendar"
	"privatezone-backend/pkg/gmail"
	"privatezone-backend/pkg/gtasks"
	"privatezone-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Repositories
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	credentialRepo := integrationRepo.NewCredentialRepository(db)
	syncHistoryRepo := integrationRepo.NewSyncHistoryRepository(db)
	emailRepository := emailRepo.NewEmailRepository(db)
	attachmentRepository := emailRepo.NewAttachmentRepository(db)
	eventRepository := calendarRepo.NewEventRepository(db)
	taskRepository := taskRepo.NewGormTaskRepository(db)

	// Provider clients share one OAuth app and differ in scopes.
	oauth := gauth.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.ProviderTimeout)
	gmailService := gmail.NewService(oauth)
	calendarService := gcalendar.NewService(oauth)
	tasksService := gtasks.NewService(oauth)

	guard := tokenguard.New(credentialRepo, map[intdomain.Provider]tokenguard.Refresher{
		intdomain.ProviderMail:     gmailService,
		intdomain.ProviderCalendar: calendarService,
		intdomain.ProviderTasks:    tasksService,
	}, cfg.CoalesceTokenRefresh, zlog)

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		js, err := events.NewJetStream(cfg.NATSURL, zlog)
		if err != nil {
			zlog.Warn("NATS unavailable, sync events disabled", zap.Error(err))
		} else {
			publisher = js
		}
	}
	defer publisher.Close()

	// Use cases
	authUc := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg, zlog)
	integrationUc := integrationUsecase.NewIntegrationUsecase(credentialRepo, syncHistoryRepo, guard, map[intdomain.Provider]integrationUsecase.ProviderBinding{
		intdomain.ProviderMail: {
			Connector: gmailService.OAuth(),
			Probe: func(ctx context.Context, creds gauth.Credentials) error {
				_, err := gmailService.GetProfile(ctx, creds)
				return err
			},
		},
		intdomain.ProviderCalendar: {
			Connector: calendarService.OAuth(),
			Probe: func(ctx context.Context, creds gauth.Credentials) error {
				_, err := calendarService.ListCalendars(ctx, creds)
				return err
			},
		},
		intdomain.ProviderTasks: {
			Connector: tasksService.OAuth(),
			Probe: func(ctx context.Context, creds gauth.Credentials) error {
				_, err := tasksService.ListTaskLists(ctx, creds)
				return err
			},
		},
	}, cfg.JWTSecret, zlog)
	emailUc := emailUsecase.NewEmailUsecase(emailRepository, attachmentRepository, gmailService, guard, syncHistoryRepo, publisher, emailUsecase.Config{
		AttachmentCacheLimit: cfg.AttachmentCacheLimit,
		WatchTopic:           cfg.PubSubTopicPath(),
	}, zlog)
	calendarUc := calendarUsecase.NewCalendarUsecase(eventRepository, calendarService, guard, syncHistoryRepo, publisher, zlog)
	taskUc := taskUsecase.NewTaskUsecase(taskRepository, tasksService, guard, syncHistoryRepo, publisher, zlog)

	// FCM is optional; without it reminders and new-mail pushes are off.
	var sender fcm.Sender
	if cfg.FirebaseCredentials != "" {
		client, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, zlog)
		if err != nil {
			zlog.Warn("Failed to initialize FCM client (push notifications disabled)", zap.Error(err))
		} else {
			sender = client
		}
	} else {
		zlog.Info("No Firebase credentials configured, FCM disabled")
	}

	reminders := scheduler.NewTaskReminderScheduler(taskRepository, fcmTokenRepo, sender, cfg.ReminderInterval, zlog)
	reminders.Start(ctx)

	if cfg.GoogleProjectID != "" {
		handler := notification.NewHandler(credentialRepo, syncHistoryRepo, emailUc, fcmTokenRepo, sender, zlog)
		notifService, err := notification.NewService(ctx, cfg.GoogleProjectID, cfg.PubSubTopicName(), cfg.GoogleCredentials, handler, zlog)
		if err != nil {
			zlog.Error("Failed to initialize notification service", zap.Error(err))
		} else {
			defer func() { _ = notifService.Close() }()
			go func() {
				if err := notifService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zlog.Error("notification service stopped", zap.Error(err))
				}
			}()
		}
	} else {
		zlog.Warn("GOOGLE_PROJECT_ID not configured, notification service disabled")
	}

	handler := api.NewHandler(
		authUc,
		integrationDelivery.NewIntegrationHandler(integrationUc, cfg.FrontendURL),
		emailDelivery.NewEmailHandler(emailUc),
		calendarDelivery.NewCalendarHandler(calendarUc),
		taskDelivery.NewTaskHandler(taskUc),
		cfg,
		zlog,
	)
	srv := handler.Server()

	go func() {
		zlog.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown", zap.Error(err))
	}
	reminders.Stop()
}
