package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/logging"
	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/router"
	"github.com/yukikurage/project-management-api/internal/services"
)

const webhookDedupTTL = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)

	// Connect to database
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	store, dedup, err := sessionBackends(cfg, logger)
	if err != nil {
		return err
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Server.Mode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	sender, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}
	notifier := notify.NewEmailNotifier(sender)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	dispatcher := events.NewDispatcher(repository.NewJobRepository(db), events.Options{
		PollInterval: cfg.Dispatcher.PollInterval,
		BatchSize:    cfg.Dispatcher.BatchSize,
		MaxAttempts:  cfg.Dispatcher.MaxAttempts,
		RetryBackoff: cfg.Dispatcher.RetryBackoff,
	}, logger)

	// AI drafting stays disabled without an API key
	var drafter services.TaskDrafter
	if cfg.OpenAI.APIKey != "" {
		drafter = services.NewAIService(cfg.OpenAI.APIKey)
	}

	workspaceService := services.NewWorkspaceService(workspaceRepo, userRepo)
	projectService := services.NewProjectService(projectRepo, workspaceRepo, userRepo, logger)
	taskService := services.NewTaskService(taskRepo, projectRepo, repository.NewTransactor(db), dispatcher, drafter)
	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, workspaceRepo)
	identityService := services.NewIdentityService(userRepo, workspaceRepo, logger)

	services.NewNotificationService(taskRepo, notifier, dispatcher, logger).Register(dispatcher)
	identityService.Register(dispatcher)

	r := gin.New()
	router.Setup(r, router.Deps{
		BasePath:     cfg.Server.BasePath,
		SessionStore: store,
		Verifier:     verifier,
		Log:          logger,

		HealthHandler:    handlers.NewHealthHandler(db),
		AuthHandler:      handlers.NewAuthHandler(services.NewUserService(userRepo)),
		WorkspaceHandler: handlers.NewWorkspaceHandler(workspaceService),
		ProjectHandler:   handlers.NewProjectHandler(projectService),
		TaskHandler:      handlers.NewTaskHandler(taskService),
		CommentHandler:   handlers.NewCommentHandler(commentService),
		WebhookHandler:   handlers.NewWebhookHandler(cfg.Webhook.Secret, identityService, dedup, dispatcher, logger),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := dispatcher.Recover(gctx); err != nil {
			return err
		}
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sessionBackends returns the session store and webhook de-duplicator:
// Redis-backed when Redis is configured, in-process otherwise.
func sessionBackends(cfg *config.Config, logger *logrus.Logger) (sessions.Store, events.Deduplicator, error) {
	if !cfg.Redis.Enabled() {
		logger.Warn("Redis not configured; using cookie sessions and in-memory webhook de-duplication")
		return cookie.NewStore([]byte(cfg.Session.Secret)), events.NewMemoryDeduplicator(webhookDedupTTL), nil
	}

	store, err := redisStore.NewStore(
		10,               // Redis pool size
		"tcp",            // network type
		cfg.Redis.Addr(), // Redis address from config
		cfg.Redis.Password,
		[]byte(cfg.Session.Secret), // authentication key
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return store, events.NewRedisDeduplicator(rdb, "webhook:delivery:", webhookDedupTTL), nil
}
