package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juanifmera/progresion/internal/config"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/report"
)

// RunLog 运行记录查询接口
type RunLog interface {
	ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error)
	LastRun(ctx context.Context) (*model.RunRecord, error)
}

// Handler API 处理器
type Handler struct {
	runner      *report.Runner
	runs        RunLog
	cfg         *config.AppConfig
	downloads   *downloadStore
	downloadTTL time.Duration
	started     time.Time
}

// NewHandler 创建 API 处理器；runs 可为 nil
func NewHandler(runner *report.Runner, runs RunLog, cfg *config.AppConfig) *Handler {
	ttl := time.Duration(cfg.Export.DownloadTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Handler{
		runner:      runner,
		runs:        runs,
		cfg:         cfg,
		downloads:   newDownloadStore(),
		downloadTTL: ttl,
		started:     time.Now(),
	}
}

// RegisterRoutes 注册 API 路由；limit 只作用于报表运行接口
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, limit gin.HandlerFunc) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.GET("/months", h.ListMonths)
	router.GET("/config", h.GetConfig)
	router.GET("/runs", h.ListRuns)

	// 报表
	router.GET("/reports", h.ListReports)
	reports := router.Group("/reports")
	if limit != nil {
		reports.Use(limit)
	}
	reports.POST("/:kind", h.RunReport)
	reports.POST("/:kind/stream", h.RunReportStream)

	// 一次性下载
	router.GET("/export/download/:token", h.DownloadExport)
}
