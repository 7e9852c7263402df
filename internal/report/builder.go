package report

import (
	"context"
	"fmt"

	"github.com/juanifmera/progresion/internal/calculator"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
)

// DefaultCompanyName 公司合计工作表使用的名称
const DefaultCompanyName = "Carrefour"

// BuildOptions 报表构建参数
type BuildOptions struct {
	Policy      calculator.UndefinedPolicy
	CompanyName string
	CurrentYear int // 配置中的当前年份，0 表示取数据中的最大年份
}

// Builder 按报表定义把数据集构建为工作表集合
type Builder struct {
	catalog *Catalog
	eval    *Evaluator
	opts    BuildOptions
}

// NewBuilder 创建构建器
func NewBuilder(catalog *Catalog, opts BuildOptions) *Builder {
	if opts.Policy == "" {
		opts.Policy = calculator.PolicyBlank
	}
	if opts.CompanyName == "" {
		opts.CompanyName = DefaultCompanyName
	}
	return &Builder{catalog: catalog, eval: NewEvaluator(), opts: opts}
}

// Catalog 报表定义目录
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// ResolveYear 确定本年：请求 > 配置 > 数据中的最大年份
func (b *Builder) ResolveYear(req Request, ds *importer.Dataset) (int, error) {
	switch {
	case req.CurrentYear > 0:
		return req.CurrentYear, nil
	case b.opts.CurrentYear > 0:
		return b.opts.CurrentYear, nil
	case len(ds.Years) > 0:
		return ds.Years[len(ds.Years)-1], nil
	}
	return 0, fmt.Errorf("no transaction years in input")
}

// Build 构建报表
func (b *Builder) Build(ctx context.Context, ds *importer.Dataset, req Request) (*model.ReportBundle, error) {
	def, ok := b.catalog.Get(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown report kind %q", ErrInvalidRequest, req.Kind)
	}
	current, err := b.ResolveYear(req, ds)
	if err != nil {
		return nil, err
	}

	bundle := &model.ReportBundle{Kind: string(req.Kind), Format: req.Format}
	switch req.Kind {
	case KindComparison:
		sheet, err := b.buildComparison(ds, req, current)
		if err != nil {
			return nil, err
		}
		bundle.Sheets = append(bundle.Sheets, sheet)
	case KindConsolidated:
		bundle.Sheets = append(bundle.Sheets, buildConsolidated(ds, req))
	default:
		sheets, err := b.buildSheets(ctx, def, ds, req, current-1, current)
		if err != nil {
			return nil, err
		}
		bundle.Sheets = sheets
	}
	return bundle, nil
}

func (b *Builder) buildSheets(ctx context.Context, def Definition, ds *importer.Dataset, req Request, prior, current int) ([]model.Sheet, error) {
	rows := ds.Comparable
	format := ""
	if len(rows) > 0 {
		format = rows[0].Format
	}
	env := ReportEnv(req, format, prior, current)
	env["company"] = b.opts.CompanyName

	var scope calculator.RowFilter
	if def.YearToDate {
		limit := req.Month.Ordinal()
		scope = func(r *model.JoinedFact) bool {
			return r.Month.Valid() && r.Month.Ordinal() <= limit
		}
	}

	sheets := make([]model.Sheet, 0, len(def.Sheets))
	for _, spec := range def.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := b.eval.IsTrue(spec.When, env)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", spec.Name, err)
		}
		if !ok {
			continue
		}
		name, err := b.sheetName(spec, env)
		if err != nil {
			return nil, err
		}

		filter, whereErr := b.rowFilter(spec, scope, req.Month)
		agg := calculator.Aggregate(rows, spec.Dimensions, spec.categories(), filter)
		if *whereErr != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, *whereErr)
		}
		table := calculator.Pivot(agg, prior, current, b.opts.Policy)

		var sheet model.Sheet
		switch spec.Layout {
		case LayoutLong:
			sheet = RenderLong(name+ComparableSuffix, table)
		case LayoutYears:
			calculator.SortKeysAsc(&table)
			sheet = RenderYears(name+ComparableSuffix, table)
		default:
			sortSpec, err := spec.sortSpec()
			if err != nil {
				return nil, err
			}
			calculator.SortTable(&table, sortSpec)
			sheet = RenderWide(name+ComparableSuffix, table)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (b *Builder) sheetName(spec SheetSpec, env map[string]any) (string, error) {
	if spec.NameExpr == "" {
		return spec.Name, nil
	}
	out, err := b.eval.Evaluate(spec.NameExpr, env)
	if err != nil {
		return "", fmt.Errorf("sheet %q: %w", spec.Name, err)
	}
	s, ok := out.(string)
	if !ok || s == "" {
		return spec.Name, nil
	}
	return s, nil
}

// rowFilter 组合口径过滤与 where 表达式；表达式错误通过返回的指针带出
func (b *Builder) rowFilter(spec SheetSpec, scope calculator.RowFilter, month model.Month) (calculator.RowFilter, *error) {
	var firstErr error
	if spec.Where == "" {
		return scope, &firstErr
	}
	env := newRowEnv()
	return func(r *model.JoinedFact) bool {
		if scope != nil && !scope(r) {
			return false
		}
		if firstErr != nil {
			return false
		}
		ok, err := b.eval.IsTrueRow(spec.Where, env.load(r, month))
		if err != nil {
			firstErr = err
			return false
		}
		return ok
	}, &firstErr
}
