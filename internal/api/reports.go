package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juanifmera/progresion/internal/exporter"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
	"github.com/juanifmera/progresion/internal/report"
)

// 上传表单字段
const (
	FieldSales    = "ventas"
	FieldTickets  = "debitos"
	FieldRegistry = "padron"
)

// ListReports 可用的报表类型及其工作表
// GET /api/reports
func (h *Handler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.runner.Builder().Catalog().List()})
}

// RunResponse 报表运行结果
type RunResponse struct {
	RunID       string         `json:"runId"`
	Status      string         `json:"status"`
	Stage       model.Stage    `json:"stage"`
	Reason      string         `json:"reason,omitempty"`
	Stats       model.RunStats `json:"stats"`
	ElapsedMs   int64          `json:"elapsedMs"`
	FileName    string         `json:"fileName,omitempty"`
	DownloadURL string         `json:"downloadUrl,omitempty"`
	Sheets      []sheetSummary `json:"sheets,omitempty"`
}

type sheetSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// RunReport 上传文件并同步运行报表
// POST /api/reports/:kind
func (h *Handler) RunReport(c *gin.Context) {
	req, in, closeAll, err := h.parseRunForm(c)
	defer closeAll()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out := h.runner.Run(c.Request.Context(), req, in, nil)
	c.JSON(statusFor(out), h.respond(c, out))
}

type streamEvent struct {
	Type      string      `json:"type"`
	Stage     model.Stage `json:"stage,omitempty"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RunReportStream 运行报表（SSE 进度 + 完成后提供下载地址）
// POST /api/reports/:kind/stream
func (h *Handler) RunReportStream(c *gin.Context) {
	req, in, closeAll, err := h.parseRunForm(c)
	defer closeAll()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event streamEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(streamEvent{
		Type:      "start",
		Message:   "Iniciando " + string(req.Kind),
		Data:      map[string]any{"kind": req.Kind, "month": req.Month.String()},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	out := h.runner.Run(c.Request.Context(), req, in, func(e importer.ProgressEvent) {
		switch e.Type {
		case "done", "error":
			// 最终事件由下面统一发送
			return
		case "progress":
			if p, ok := e.Data.(exporter.ProgressEvent); ok {
				if p.Percent == lastPercent {
					return
				}
				lastPercent = p.Percent
			}
		}
		send(streamEvent{Type: e.Type, Stage: e.Stage, Message: e.Message, Data: e.Data, Timestamp: e.Timestamp})
	})

	final := streamEvent{Type: "done", Stage: out.Stage, Message: "Reporte generado", Timestamp: time.Now()}
	if !out.OK() {
		final.Type = "error"
		final.Message = out.Reason
	}
	final.Data = h.respond(c, out)
	send(final)
}

// respond 组装响应；成功时登记一次性下载令牌
func (h *Handler) respond(c *gin.Context, out model.Outcome) RunResponse {
	resp := RunResponse{
		RunID:     out.RunID,
		Status:    string(out.Status),
		Stage:     out.Stage,
		Reason:    out.Reason,
		Stats:     out.Stats,
		ElapsedMs: out.Elapsed.Milliseconds(),
	}
	if !out.OK() || out.Artifact == nil {
		return resp
	}
	token := h.downloads.put(out.Artifact, out.RunID, h.downloadTTL)
	resp.FileName = out.Artifact.FileName
	resp.DownloadURL = downloadPrefix(c) + "/export/download/" + token
	if out.Bundle != nil {
		for _, s := range out.Bundle.Sheets {
			resp.Sheets = append(resp.Sheets, sheetSummary{Name: s.Name, Rows: len(s.Rows)})
		}
	}
	return resp
}

func downloadPrefix(c *gin.Context) string {
	path := c.Request.URL.Path
	if idx := strings.Index(path, "/reports/"); idx >= 0 {
		return path[:idx]
	}
	return "/api"
}

// statusFor 失败原因映射为 HTTP 状态码
func statusFor(out model.Outcome) int {
	if out.OK() {
		return http.StatusOK
	}
	switch {
	case errors.Is(out.Err, report.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(out.Err, parser.ErrFileShape),
		errors.Is(out.Err, parser.ErrCoercion),
		errors.Is(out.Err, parser.ErrSchemaDrift):
		return http.StatusUnprocessableEntity
	case errors.Is(out.Err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

// DownloadExport 下载导出文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}
	c.Header("Content-Disposition", contentDisposition(item.artifact.FileName))
	c.Data(http.StatusOK, item.artifact.ContentType, item.artifact.Data)
}

// contentDisposition 附件头：ASCII 回退名 + RFC 5987 的 UTF-8 文件名
func contentDisposition(name string) string {
	fallback := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			fallback = append(fallback, '_')
		case r < 0x20 || r > 0x7e:
			fallback = append(fallback, '_')
		default:
			fallback = append(fallback, r)
		}
	}
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", string(fallback), url.PathEscape(name))
}

// parseRunForm 解析 multipart 表单为报表请求与输入；返回的 closeAll 关闭已打开的上传文件
func (h *Handler) parseRunForm(c *gin.Context) (report.Request, importer.Inputs, func(), error) {
	var (
		req   report.Request
		in    importer.Inputs
		files []multipart.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		return req, in, closeAll, err
	}
	req.Kind = kind

	month, err := model.ParseMonth(c.PostForm("month"))
	if err != nil {
		return req, in, closeAll, fmt.Errorf("%w: %v", report.ErrInvalidRequest, err)
	}
	req.Month = month

	if v := strings.TrimSpace(c.PostForm("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return req, in, closeAll, fmt.Errorf("%w: invalid year %q", report.ErrInvalidRequest, v)
		}
		req.CurrentYear = year
	}
	req.Format = model.ArtifactFormat(strings.ToLower(strings.TrimSpace(c.PostForm("format"))))
	if req.Format == "" {
		req.Format = model.ArtifactFormat(h.cfg.Export.Format)
	}
	req.Scope = report.Scope(c.PostForm("scope"))
	if v := c.PostForm("category"); v != "" {
		req.Category = model.Category(strings.ToUpper(strings.TrimSpace(v)))
	}
	for _, s := range c.PostFormArray("store") {
		if s = strings.TrimSpace(s); s != "" {
			req.Stores = append(req.Stores, s)
		}
	}

	open := func(field string) (importer.Source, error) {
		fh, err := c.FormFile(field)
		if err != nil {
			return importer.Source{}, fmt.Errorf("missing file %q", field)
		}
		f, err := fh.Open()
		if err != nil {
			return importer.Source{}, fmt.Errorf("open %q: %w", field, err)
		}
		files = append(files, f)
		return importer.Source{Name: fh.Filename, Reader: f}, nil
	}
	if in.Sales, err = open(FieldSales); err != nil {
		return req, in, closeAll, err
	}
	if in.Tickets, err = open(FieldTickets); err != nil {
		return req, in, closeAll, err
	}
	if in.Registry, err = open(FieldRegistry); err != nil {
		return req, in, closeAll, err
	}
	in.Month = month
	return req, in, closeAll, nil
}
