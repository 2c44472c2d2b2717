package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "garmentflow/api/swagger" // swagger docs
	"garmentflow/internal/config"
	"garmentflow/internal/database"
	"garmentflow/internal/handler"
	"garmentflow/internal/logger"
	"garmentflow/internal/metrics"
	"garmentflow/internal/middleware"
	"garmentflow/internal/repository"
	"garmentflow/internal/service"
	"garmentflow/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Garment Production API
// @version         1.0
// @description     Production routing, work logs and wage reporting for garment sub-batches.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("error").WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN(), database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("connected to PostgreSQL")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	// Repository -> Service -> Handler
	repos := repository.NewRepositories(db)
	transitionService := service.NewTransitionService(repos, wsHub, recorder, log)
	workLogService := service.NewWorkLogService(repos, wsHub, log)
	taskService := service.NewTaskService(repos)
	historyService := service.NewHistoryService(repos)
	wageService := service.NewWageService(repos)
	auditService := service.NewAuditService(repos.Audit)

	productionHandler := handler.NewProductionHandler(transitionService, taskService, historyService)
	workLogHandler := handler.NewWorkLogHandler(workLogService)
	wageHandler := handler.NewWageHandler(wageService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	guard := middleware.NewGuard(secret)
	productionHandler.RegisterRoutes(router.Group(""), guard)
	workLogHandler.RegisterRoutes(router.Group(""), guard)
	wageHandler.RegisterRoutes(router.Group(""), guard)
	auditHandler.RegisterRoutes(router.Group(""), guard)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
