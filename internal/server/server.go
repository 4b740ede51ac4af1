package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propdesk/config"
	"propdesk/internal/handler"
	"propdesk/internal/middleware"
	"propdesk/internal/redis"
	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"
	"propdesk/internal/websocket"
	"propdesk/pkg/database"
	"propdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Projects    *handler.ProjectHandler
	Attachments *handler.AttachmentHandler
	Enhance     *handler.EnhanceHandler
	WebSocket   *websocket.Handler
}

// Dependencies are the shared pieces the routes need besides handlers.
// Limiter and Gatherer may be nil.
type Dependencies struct {
	Auth     *services.AuthService
	Limiter  middleware.RateLimiter
	Gatherer prometheus.Gatherer
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/health", s.health)

	if deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if handlers.WebSocket != nil {
		s.engine.GET("/ws", handlers.WebSocket.Connect)
	}

	auth := middleware.AuthMiddleware(deps.Auth)
	uploadLimit := middleware.RateLimitMiddleware(deps.Limiter, redis.ActionUpload, s.logger)
	enhanceLimit := middleware.RateLimitMiddleware(deps.Limiter, redis.ActionEnhance, s.logger)

	projects := s.engine.Group("/v1/projects", auth)
	{
		projects.GET("", handlers.Projects.List)
		projects.POST("", handlers.Projects.Create)
		projects.GET("/:id", handlers.Projects.Get)
		projects.PUT("/:id", handlers.Projects.Update)
		projects.DELETE("/:id", handlers.Projects.Delete)
		projects.POST("/:id/submit", handlers.Projects.Submit)
		projects.GET("/:id/budget", handlers.Projects.GetBudget)
		projects.PUT("/:id/budget", handlers.Projects.SaveBudget)
		projects.GET("/:id/attachments", handlers.Projects.ListAttachments)
	}

	attachments := s.engine.Group("/v1/attachments", auth)
	{
		attachments.POST("", uploadLimit, handlers.Attachments.Upload)
		attachments.DELETE("/:id", handlers.Attachments.Delete)
		attachments.GET("/:id/download", handlers.Attachments.Download)
	}

	s.engine.POST("/v1/enhance", auth, enhanceLimit, handlers.Enhance.Enhance)
}

// health fails on the database only. Redis backs rate limiting and live
// updates, both of which degrade without it.
func (s *Server) health(c *gin.Context) {
	if err := database.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := gin.H{"status": "healthy", "database": "ok", "redis": "ok"}
	if err := redis.HealthCheck(ctx); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
