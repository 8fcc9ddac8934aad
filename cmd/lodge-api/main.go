package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jeffreylongo/lodge-api/internal/handler"
	"github.com/jeffreylongo/lodge-api/internal/middleware"
	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/relay"
	"github.com/jeffreylongo/lodge-api/internal/repository"
	"github.com/jeffreylongo/lodge-api/internal/service"
	"github.com/jeffreylongo/lodge-api/pkg/cache"
	"github.com/jeffreylongo/lodge-api/pkg/config"
	"github.com/jeffreylongo/lodge-api/pkg/logger"
	corsmiddleware "github.com/jeffreylongo/lodge-api/pkg/middleware/cors"
	reqidmiddleware "github.com/jeffreylongo/lodge-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	httpClient := &http.Client{Timeout: cfg.Calendar.FetchTimeout}
	fetcher := relay.NewFetcher(httpClient, cfg.Calendar.Relays, cfg.Calendar.FetchTimeout, cfg.Calendar.MonthsAhead, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	calendarSvc := service.NewCalendarService(fetcher, cacheRepo, cfg.Calendar, models.DefaultSources(), metricsSvc, logr)
	authSvc := service.NewAuthService(validate, logr, cfg.Auth)
	shopRepo := repository.NewShopRepository(&http.Client{Timeout: cfg.Shop.FetchTimeout}, cfg.Shop.CatalogURL, cfg.Shop.FetchTimeout)
	shopSvc := service.NewShopService(shopRepo, cacheRepo, cfg.Shop.CacheTTL, logr)
	contactSvc := service.NewContactService(validate, cfg.Contact)
	exportSvc := service.NewExportService(calendarSvc, "Lodge Calendar")

	calendarHandler := handler.NewCalendarHandler(calendarSvc, exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	shopHandler := handler.NewShopHandler(shopSvc)
	contactHandler := handler.NewContactHandler(contactSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		calendar := api.Group("/calendar")
		{
			calendar.GET("/events", calendarHandler.Events)
			calendar.GET("/occurrences", calendarHandler.Occurrences)
			calendar.GET("/status", calendarHandler.Status)
			calendar.GET("/stream", calendarHandler.Stream)
			calendar.GET("/export", calendarHandler.Export)
			calendar.GET("/sources", calendarHandler.Sources)
			calendar.GET("/sources/:id/feed", calendarHandler.DownloadFeed)
		}

		api.GET("/shop/products", shopHandler.Products)
		api.POST("/contact/mailto", contactHandler.Mailto)

		admin := api.Group("/admin", middleware.JWT(authSvc))
		{
			admin.GET("/me", authHandler.Me)
			admin.POST("/calendar/sync", calendarHandler.Sync)
			admin.POST("/calendar/cache/clear", calendarHandler.ClearCache)
			admin.POST("/calendar/sources/:id/refresh", calendarHandler.RefreshSource)
			admin.PATCH("/calendar/sources/:id", calendarHandler.UpdateSource)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		result := calendarSvc.Start(ctx)
		logr.Info("initial calendar sync finished",
			zap.Bool("success", result.Success),
			zap.Int("events", result.EventCount),
			zap.String("message", result.Message),
		)
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Calendar.ResyncSchedule, func() {
		calendarSvc.Sync(context.Background())
	}); err != nil {
		logr.Fatal("invalid resync schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("shutdown incomplete", zap.Error(err))
	}
}
