package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"github.com/juanifmera/progresion/internal/api"
	"github.com/juanifmera/progresion/internal/config"
	"github.com/juanifmera/progresion/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	api    *api.Handler
	http   *http.Server
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 运行记录
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, store.DefaultFileName))
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(cfg, sqliteStore)
	if err != nil {
		_ = sqliteStore.Close()
		return nil, err
	}

	s := &Server{
		router: gin.New(),
		store:  sqliteStore,
		api:    api.NewHandler(runner, sqliteStore, cfg),
	}
	s.setupRoutes(cfg)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(cfg *config.AppConfig) {
	s.router.Use(gin.Recovery(), api.RouteAccessLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	limiter := api.NewRateLimiter(cfg.Limits.RatePerSecond, cfg.Limits.Burst)
	s.api.RegisterRoutes(s.router.Group("/api"), limiter.Middleware())

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到关闭
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tl.Log(tl.Notice, palette.Green, "Listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭并释放数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}
