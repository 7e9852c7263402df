package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juanifmera/progresion/internal/model"
)

// StatusResponse 服务状态
type StatusResponse struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	LastRun *model.RunRecord `json:"lastRun,omitempty"`
}

// GetStatus 服务状态与最近一次运行
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}
	if h.runs != nil {
		last, err := h.runs.LastRun(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.LastRun = last
	}
	c.JSON(http.StatusOK, resp)
}

type monthItem struct {
	Name           string `json:"name"`
	Key            string `json:"key"`
	Ordinal        int    `json:"ordinal"`
	RegistryColumn string `json:"registryColumn"`
}

// ListMonths 月份枚举
// GET /api/months
func (h *Handler) ListMonths(c *gin.Context) {
	months := model.AllMonths()
	items := make([]monthItem, 0, len(months))
	for _, m := range months {
		items = append(items, monthItem{
			Name:           m.String(),
			Key:            m.Key(),
			Ordinal:        m.Ordinal(),
			RegistryColumn: m.RegistryColumn(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetConfig 生效的配置
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg)
}

// ListRuns 最近的运行记录
// GET /api/runs?limit=20
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"items": []*model.RunRecord{}})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	items, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []*model.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
