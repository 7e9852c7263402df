package server

import (
	"fmt"
	"strings"

	"github.com/juanifmera/progresion/internal/calculator"
	"github.com/juanifmera/progresion/internal/config"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
	"github.com/juanifmera/progresion/internal/report"
)

// NewRunner 按配置组装加载器、报表目录与构建器；recorder 可为 nil
func NewRunner(cfg *config.AppConfig, recorder report.Recorder) (*report.Runner, error) {
	policy, err := calculator.ParsePolicy(cfg.Business.UndefinedProgression)
	if err != nil {
		return nil, err
	}
	extra, err := Breakdowns(cfg.Breakdowns)
	if err != nil {
		return nil, err
	}
	catalog, err := report.NewCatalog(extra)
	if err != nil {
		return nil, err
	}

	loader := importer.NewCoordinator(importer.Options{
		Extract: parser.ReadOptions{
			HeaderRow: cfg.Extract.HeaderRow,
			Encoding:  cfg.Extract.Encoding,
		},
		Registry: parser.RegistryOptions{
			HeaderRow: cfg.Registry.HeaderRow,
			Sheet:     cfg.Registry.Sheet,
			IDColumns: cfg.Registry.IDColumns,
		},
		Normalize:      parser.NormalizeOptions{ExcludedFamily: cfg.Business.ExcludedFamily},
		ComparableFlag: cfg.Business.ComparableFlag,
	})
	builder := report.NewBuilder(catalog, report.BuildOptions{
		Policy:      policy,
		CompanyName: cfg.Business.CompanyName,
		CurrentYear: cfg.Business.CurrentYear,
	})
	return report.NewRunner(loader, builder, recorder), nil
}

// Breakdowns 把配置中的自定义工作表转换为按报表类型分组的定义
func Breakdowns(items []config.BreakdownConfig) (map[report.Kind][]report.SheetSpec, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[report.Kind][]report.SheetSpec)
	for i, b := range items {
		kind, err := report.ParseKind(b.Kind)
		if err != nil {
			return nil, fmt.Errorf("breakdowns[%d]: %w", i, err)
		}
		spec := report.SheetSpec{
			Name:   strings.TrimSpace(b.Name),
			Layout: report.Layout(strings.ToLower(strings.TrimSpace(b.Layout))),
			Where:  b.Where,
			When:   b.When,
		}
		if spec.Layout == "" {
			spec.Layout = report.LayoutWide
		}
		if spec.Dimensions, err = dimensions(b.Dimensions); err != nil {
			return nil, fmt.Errorf("breakdowns[%d]: %w", i, err)
		}
		if spec.SortKeys, err = dimensions(b.SortKeys); err != nil {
			return nil, fmt.Errorf("breakdowns[%d]: %w", i, err)
		}
		for _, c := range b.Categories {
			cat, ok := model.ParseCategory(strings.ToUpper(strings.TrimSpace(c)))
			if !ok {
				return nil, fmt.Errorf("breakdowns[%d]: unknown category %q", i, c)
			}
			spec.Categories = append(spec.Categories, cat)
		}
		out[kind] = append(out[kind], spec)
	}
	return out, nil
}

func dimensions(names []string) ([]model.Dimension, error) {
	var out []model.Dimension
	for _, n := range names {
		d, ok := model.ParseDimension(strings.ToLower(strings.TrimSpace(n)))
		if !ok {
			return nil, fmt.Errorf("unknown dimension %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}
