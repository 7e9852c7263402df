package importer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
)

// Source 单个输入文件
type Source struct {
	Name   string
	Reader io.Reader
}

// Inputs 一次运行的输入
type Inputs struct {
	Sales    Source // 销售额 + 销量 CSV
	Tickets  Source // 小票数 CSV
	Registry Source // 登记表 XLSX
	Month    model.Month

	// OptionalColumns 本次运行可缺省的交易列（由报表类型决定）
	OptionalColumns []string
}

// Options 加载选项
type Options struct {
	Extract        parser.ReadOptions
	Registry       parser.RegistryOptions
	Normalize      parser.NormalizeOptions
	Mapper         *parser.FieldMapper
	ComparableFlag string
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/stage/info/warning/done/error
	Stage     model.Stage `json:"stage"`   // 当前阶段
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ProgressFunc 进度回调
type ProgressFunc func(ProgressEvent)

// StageError 带阶段信息的错误
type StageError struct {
	Stage model.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Dataset 加载、连接并过滤后的数据集
type Dataset struct {
	Month       model.Month
	Facts       []model.Fact
	Registry    []model.RegistryEntry
	Joined      []model.JoinedFact // 全部交易行（左连接）
	Comparable  []model.JoinedFact // 可比面积行
	Years       []int              // 数据中出现的年份（升序）
	JoinStats   JoinStats
	FilterStats FilterStats
	Sources     []parser.NormalizeResult
	RegistryRes parser.RegistryResult
}

// Stats 转换为运行统计
func (d *Dataset) Stats() model.RunStats {
	return model.RunStats{
		FactRows:       len(d.Facts),
		RegistryRows:   len(d.Registry),
		UnmatchedRows:  d.JoinStats.Unmatched,
		DroppedRows:    d.FilterStats.Dropped(),
		ComparableRows: len(d.Comparable),
	}
}

// Coordinator 加载协调器：读取 → 规范化 → 连接登记表 → 可比面积过滤
type Coordinator struct {
	opts Options
}

// NewCoordinator 创建加载协调器
func NewCoordinator(opts Options) *Coordinator {
	if opts.Mapper == nil {
		opts.Mapper = parser.NewFieldMapper(nil)
	}
	if opts.ComparableFlag == "" {
		opts.ComparableFlag = DefaultComparableFlag
	}
	return &Coordinator{opts: opts}
}

// Load 执行加载流水线；每个阶段之间检查 ctx
func (c *Coordinator) Load(ctx context.Context, in Inputs, progress ProgressFunc) (*Dataset, error) {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	send := func(typ string, stage model.Stage, data interface{}, format string, args ...interface{}) {
		progress(ProgressEvent{
			Type:      typ,
			Stage:     stage,
			Message:   fmt.Sprintf(format, args...),
			Data:      data,
			Timestamp: time.Now(),
		})
	}

	if !in.Month.Valid() {
		return nil, &StageError{Stage: model.StageValidate, Err: fmt.Errorf("invalid comparable month %d", int(in.Month))}
	}
	ds := &Dataset{Month: in.Month}
	normalize := c.opts.Normalize
	if len(in.OptionalColumns) > 0 {
		normalize.Optional = append(append([]string(nil), normalize.Optional...), in.OptionalColumns...)
	}

	// 交易数据
	for _, src := range []struct {
		kind parser.SourceKind
		in   Source
	}{
		{parser.SourceSalesVolume, in.Sales},
		{parser.SourceTickets, in.Tickets},
	} {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: model.StageLoad, Err: err}
		}
		if src.in.Reader == nil {
			return nil, &StageError{Stage: model.StageLoad, Err: fmt.Errorf("missing %s input", src.kind)}
		}
		send("stage", model.StageLoad, map[string]string{"file": src.in.Name}, "读取 %s", src.in.Name)

		table, err := parser.ReadTable(src.in.Name, src.in.Reader, c.opts.Extract)
		if err != nil {
			return nil, &StageError{Stage: model.StageLoad, Err: err}
		}
		if err := parser.CheckSource(table, src.kind); err != nil {
			return nil, &StageError{Stage: model.StageLoad, Err: err}
		}
		facts, res, err := parser.NormalizeTransactions(table, src.kind, c.opts.Mapper, normalize)
		if err != nil {
			return nil, &StageError{Stage: model.StageLoad, Err: err}
		}
		ds.Facts = append(ds.Facts, facts...)
		ds.Sources = append(ds.Sources, res)

		tl.Log(tl.Info1, palette.Green, "Loaded '%s' (%s): %d rows -> %d facts", src.in.Name, table.Encoding, res.Rows, res.Facts)
		if res.Excluded > 0 || res.EmptyValues > 0 {
			tl.Log(tl.Verbose, palette.CyanDim, "'%s': %d empty values, %d packaging rows excluded", src.in.Name, res.EmptyValues, res.Excluded)
		}
		send("info", model.StageLoad, res, "%s: %d 条记录", src.in.Name, res.Facts)
	}

	// 登记表
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: model.StageRegistry, Err: err}
	}
	if in.Registry.Reader == nil {
		return nil, &StageError{Stage: model.StageRegistry, Err: fmt.Errorf("missing %s input", parser.SourceRegistry)}
	}
	send("stage", model.StageRegistry, map[string]string{"file": in.Registry.Name}, "读取登记表 %s", in.Registry.Name)
	entries, regRes, err := parser.ParseRegistry(in.Registry.Name, in.Registry.Reader, in.Month, c.opts.Registry)
	if err != nil {
		return nil, &StageError{Stage: model.StageRegistry, Err: err}
	}
	ds.Registry = entries
	ds.RegistryRes = regRes
	tl.Log(tl.Info1, palette.Green, "Registry '%s': %d stores, flag column '%s'", in.Registry.Name, regRes.Entries, regRes.FlagColumn)
	if regRes.Dropped > 0 {
		tl.Log(tl.Verbose, palette.CyanDim, "Registry '%s': %d incomplete rows dropped", in.Registry.Name, regRes.Dropped)
	}

	// 左连接
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: model.StageJoin, Err: err}
	}
	ds.Joined, ds.JoinStats = JoinRegistry(ds.Facts, ds.Registry)
	if ds.JoinStats.Unmatched > 0 {
		tl.Log(tl.Warning, palette.Yellow, "%d fact rows have no registry entry", ds.JoinStats.Unmatched)
	}
	send("info", model.StageJoin, ds.JoinStats, "连接登记表：匹配 %d 行，未匹配 %d 行", ds.JoinStats.Matched, ds.JoinStats.Unmatched)

	// 可比面积过滤
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: model.StageFilter, Err: err}
	}
	ds.Comparable, ds.FilterStats = FilterComparable(ds.Joined, in.Month, c.opts.ComparableFlag)
	if dropped := ds.FilterStats.Dropped(); dropped > 0 {
		tl.Log(tl.Warning, palette.Yellow, "Comparable filter (%s=%s) dropped %d rows", in.Month.RegistryColumn(), c.opts.ComparableFlag, dropped)
		send("warning", model.StageFilter, ds.FilterStats, "可比面积过滤丢弃 %d 行", dropped)
	}

	ds.Years = distinctYears(ds.Facts)
	return ds, nil
}

func distinctYears(facts []model.Fact) []int {
	seen := make(map[int]struct{})
	for i := range facts {
		seen[facts[i].Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
