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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roadwatch-api/api/swagger"
	"github.com/noah-isme/roadwatch-api/internal/handler"
	"github.com/noah-isme/roadwatch-api/internal/middleware"
	"github.com/noah-isme/roadwatch-api/internal/repository"
	"github.com/noah-isme/roadwatch-api/internal/router"
	"github.com/noah-isme/roadwatch-api/internal/scheduler"
	"github.com/noah-isme/roadwatch-api/internal/service"
	"github.com/noah-isme/roadwatch-api/pkg/cache"
	"github.com/noah-isme/roadwatch-api/pkg/config"
	"github.com/noah-isme/roadwatch-api/pkg/database"
	"github.com/noah-isme/roadwatch-api/pkg/idgen"
	"github.com/noah-isme/roadwatch-api/pkg/logger"
	"github.com/noah-isme/roadwatch-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/roadwatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roadwatch-api/pkg/middleware/requestid"
	"github.com/noah-isme/roadwatch-api/pkg/storage"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

// @title RoadWatch API
// @version 1.0.0
// @description Crowd-sourced traffic accident reporting with verification and gamification.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	tx := database.NewTransactor(db)
	users := repository.NewUserRepository(db)
	accidents := repository.NewAccidentRepository(db)
	comments := repository.NewCommentRepository(db)
	routes := repository.NewRouteRepository(db)
	checkIns := repository.NewCheckInRepository(db)
	pointLogs := repository.NewPointLogRepository(db)

	var blocklist service.TokenBlocklist
	var memoryBlocklist *repository.MemoryBlocklist
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		blocklist = repository.NewRedisBlocklist(client)
	} else {
		logr.Warn("redis disabled, revoked tokens are kept in memory")
		memoryBlocklist = repository.NewMemoryBlocklist()
		blocklist = memoryBlocklist
	}

	ids, err := idgen.NewGenerator(cfg.IDs.SnowflakeNode)
	if err != nil {
		return err
	}

	photos, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare uploads dir: %w", err)
	}

	validate := validation.New()
	metrics := service.NewMetricsService()

	notifyCfg := service.NotificationConfig{
		AdminEmail: cfg.Admin.NotifyEmail,
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: cfg.Notify.RetryDelay,
	}
	if !cfg.Mail.Enabled() {
		logr.Warn("smtp not configured, admin approval mail disabled")
		notifyCfg.AdminEmail = ""
	}
	notifications := service.NewNotificationService(mailer.NewSMTPMailer(cfg.Mail), notifyCfg, metrics, logr.Named("notifications"))
	notifications.Start(ctx)
	defer notifications.Stop()

	points := service.NewPointsService(tx, users, pointLogs, metrics, logr.Named("points"))
	authSvc := service.NewAuthService(users, blocklist, validate, logr.Named("auth"), service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.Expiration,
		RefreshTTL: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(tx, users, pointLogs, notifications, validate, logr.Named("users"), service.UserConfig{
		AdminInviteCode: cfg.Admin.InviteCode,
	})
	accidentSvc := service.NewAccidentService(
		tx,
		accidents,
		comments,
		routes,
		users,
		photos,
		points,
		metrics,
		validate,
		logr.Named("accidents"),
		service.AccidentConfig{
			Cooldown:          cfg.Accidents.ReportCooldown,
			MaxPhotoBytes:     cfg.Uploads.MaxFileSizeBytes,
			AllowedExtensions: cfg.Uploads.AllowedExtensions,
		},
	)
	commentSvc := service.NewCommentService(comments, accidents, users, points, ids, validate, logr.Named("comments"))
	checkInSvc := service.NewCheckInService(tx, checkIns, points, validate, logr.Named("checkins"))
	routeSvc := service.NewRouteService(routes, accidents, validate, logr.Named("routes"))

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(logr.Named("scheduler"))
		if err := sched.Add("ban-sweep", cfg.Scheduler.BanSweepSpec, scheduler.NewBanSweepJob(users, logr)); err != nil {
			return fmt.Errorf("schedule ban sweep: %w", err)
		}
		if memoryBlocklist != nil {
			if err := sched.Add("blocklist-prune", cfg.Scheduler.BlocklistPruneSpec, scheduler.NewBlocklistPruneJob(memoryBlocklist, logr)); err != nil {
				return fmt.Errorf("schedule blocklist prune: %w", err)
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{cfg.Uploads.PublicPath})))

	router.RegisterRoutes(r, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, userSvc),
		Accidents: handler.NewAccidentHandler(accidentSvc, cfg.Uploads.PublicPath),
		Comments:  handler.NewCommentHandler(commentSvc),
		Routes:    handler.NewRouteHandler(routeSvc),
		CheckIns:  handler.NewCheckInHandler(checkInSvc),
		Users:     handler.NewUserHandler(userSvc),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	}, authSvc, router.Options{
		APIPrefix:   cfg.APIPrefix,
		UploadsDir:  photos.Dir(),
		UploadsPath: cfg.Uploads.PublicPath,
		EnableDocs:  cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
