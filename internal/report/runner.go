package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"github.com/juanifmera/progresion/internal/exporter"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
)

// Recorder 运行记录的持久化接口
type Recorder interface {
	CreateRun(ctx context.Context, rec *model.RunRecord) error
	FinishRun(ctx context.Context, rec *model.RunRecord) error
}

// Runner 一次报表运行：校验 → 加载 → 构建 → 导出
type Runner struct {
	loader   *importer.Coordinator
	builder  *Builder
	recorder Recorder
}

// NewRunner 创建运行器；recorder 可为 nil
func NewRunner(loader *importer.Coordinator, builder *Builder, recorder Recorder) *Runner {
	return &Runner{loader: loader, builder: builder, recorder: recorder}
}

// Builder 报表构建器
func (r *Runner) Builder() *Builder {
	return r.builder
}

// Run 执行一次运行；任何失败都转换为带阶段的 Outcome，不向上抛出 panic
func (r *Runner) Run(ctx context.Context, req Request, in importer.Inputs, progress importer.ProgressFunc) (out model.Outcome) {
	if progress == nil {
		progress = func(importer.ProgressEvent) {}
	}
	started := time.Now()
	rec := &model.RunRecord{
		ID:        uuid.New().String(),
		Kind:      string(req.Kind),
		Month:     req.Month,
		Year:      req.CurrentYear,
		Format:    string(req.Format),
		Scope:     string(req.Scope),
		Status:    model.RunStatusRunning,
		Stage:     model.StageValidate,
		StartedAt: started,
	}
	var (
		stats    model.RunStats
		recorded bool
	)

	defer func() {
		if p := recover(); p != nil {
			tl.Log(tl.Error, palette.RedBold, "Run %s panicked at stage '%s': %v", rec.ID, rec.Stage, p)
			out = model.Failed(rec.Stage, fmt.Errorf("internal error: %v", p), stats)
		}
		out.RunID = rec.ID
		out.Elapsed = time.Since(started)
		r.finish(rec, out, recorded)

		status, stage := "done", out.Stage
		if !out.OK() {
			status = "error"
		}
		progress(importer.ProgressEvent{
			Type:      status,
			Stage:     stage,
			Message:   out.Reason,
			Data:      out,
			Timestamp: time.Now(),
		})
	}()

	stage := func(s model.Stage, msg string) {
		rec.Stage = s
		progress(importer.ProgressEvent{Type: "stage", Stage: s, Message: msg, Timestamp: time.Now()})
	}

	stage(model.StageValidate, "校验请求")
	if err := req.Validate(); err != nil {
		return model.Failed(model.StageValidate, err, stats)
	}
	rec.Kind, rec.Format, rec.Scope = string(req.Kind), string(req.Format), string(req.Scope)
	if r.recorder != nil {
		if err := r.recorder.CreateRun(ctx, rec); err != nil {
			tl.Log(tl.Warning, palette.Yellow, "Failed to record run %s: %v", rec.ID, err)
		} else {
			recorded = true
		}
	}
	tl.Log(tl.Info, palette.Blue, "Run %s: %s report for %s (%s)", rec.ID, req.Kind, req.Month, req.Format)

	stage(model.StageLoad, "加载输入文件")
	in.Month = req.Month
	in.OptionalColumns = OptionalColumns(req.Kind)
	ds, err := r.loader.Load(ctx, in, progress)
	if err != nil {
		var se *importer.StageError
		if errors.As(err, &se) {
			return model.Failed(se.Stage, se.Err, stats)
		}
		return model.Failed(model.StageLoad, err, stats)
	}
	stats = ds.Stats()

	stage(model.StageAggregate, "计算同比")
	year, err := r.builder.ResolveYear(req, ds)
	if err != nil {
		return model.Failed(model.StageAggregate, err, stats)
	}
	rec.Year = year
	bundle, err := r.builder.Build(ctx, ds, req)
	if err != nil {
		return model.Failed(model.StageAggregate, err, stats)
	}
	stats.SheetCount = len(bundle.Sheets)
	stats.RowCount = bundle.RowCount()

	if err := ctx.Err(); err != nil {
		return model.Failed(model.StageExport, err, stats)
	}
	stage(model.StageExport, "导出文件")
	artifact, err := exporter.Export(bundle, ArtifactName(req), func(e exporter.ProgressEvent) {
		progress(importer.ProgressEvent{
			Type:      "progress",
			Stage:     model.StageExport,
			Message:   e.Stage,
			Data:      e,
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return model.Failed(model.StageExport, err, stats)
	}
	rec.FileName = artifact.FileName
	return model.Succeeded(bundle, artifact, stats)
}

func (r *Runner) finish(rec *model.RunRecord, out model.Outcome, recorded bool) {
	now := time.Now()
	rec.CompletedAt = &now
	rec.Elapsed = out.Elapsed
	rec.Stage = out.Stage
	rec.Stats = out.Stats
	rec.Reason = out.Reason
	rec.Status = string(out.Status)

	if out.OK() {
		tl.Log(tl.Notice, palette.Green, "Run %s done: %d sheets, %d rows in %s", rec.ID, out.Stats.SheetCount, out.Stats.RowCount, out.Elapsed)
	} else {
		tl.Log(tl.Error, palette.Red, "Run %s failed at stage '%s': %s", rec.ID, out.Stage, out.Reason)
	}

	if !recorded {
		return
	}
	// 请求的 ctx 可能已取消，记录仍需落库
	if err := r.recorder.FinishRun(context.Background(), rec); err != nil {
		tl.Log(tl.Warning, palette.Yellow, "Failed to update run %s: %v", rec.ID, err)
	}
}

// ArtifactName 导出文件名（不含扩展名）
func ArtifactName(req Request) string {
	month := req.Month.String()
	switch req.Kind {
	case KindAccumulated:
		return "Progresiones Acumulado - " + month
	case KindComparison:
		return "Comparacion Progresiones - " + month
	case KindConsolidated:
		if req.Scope == ScopeTotal {
			return "Consolidada Sup Total - " + month
		}
		return "Consolidada Sup Comparable - " + month
	}
	return "Progresiones MMAA - " + month
}
