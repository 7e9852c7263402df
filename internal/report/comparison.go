package report

import (
	"fmt"
	"sort"

	"github.com/juanifmera/progresion/internal/calculator"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
)

// TotalFormatLabel 业态合计行的门店名
const TotalFormatLabel = "Total Formato"

// ComparisonHeader 对比报表列
var ComparisonHeader = []string{"punto_operacional", "mes", "aux", "categoria", "progresiones", "valores", "periodo"}

type comparisonRow struct {
	store    string
	month    model.Month
	category model.Category
	cell     model.Cell
}

// buildComparison 门店与业态合计的逐月同比序列（三年：Y-2、Y-1、Y），展开为长表
func (b *Builder) buildComparison(ds *importer.Dataset, req Request, current int) (model.Sheet, error) {
	years := []int{current - 1, current}

	byStore := calculator.Aggregate(ds.Comparable, []model.Dimension{model.DimMonth, model.DimStore}, nil, nil)
	total := calculator.Aggregate(ds.Comparable, []model.Dimension{model.DimMonth}, nil, nil)

	collect := func(agg *calculator.Aggregation, year int, store func(*calculator.Group) string) ([]comparisonRow, error) {
		var out []comparisonRow
		for _, g := range agg.Groups {
			m, err := model.ParseMonth(g.Keys[0])
			if err != nil {
				return nil, err
			}
			for _, c := range model.AllCategories() {
				if !g.HasCategory(c) {
					continue
				}
				cell := calculator.Progression(g.Value(c, year-1), g.Value(c, year))
				out = append(out, comparisonRow{
					store:    store(g),
					month:    m,
					category: c,
					cell:     calculator.ApplyPolicy(cell, b.opts.Policy),
				})
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			x, y := out[i], out[j]
			if x.month != y.month {
				return x.month < y.month
			}
			if x.store != y.store {
				return x.store < y.store
			}
			return x.category < y.category
		})
		return out, nil
	}

	keep := func(r comparisonRow) bool {
		if req.Category != "" && r.category != req.Category {
			return false
		}
		if len(req.Stores) == 0 {
			return true
		}
		for _, s := range req.Stores {
			if s == r.store {
				return true
			}
		}
		return false
	}

	sheet := model.Sheet{Name: "Comparacion" + ComparableSuffix, Header: ComparisonHeader}
	blocks := []struct {
		agg   *calculator.Aggregation
		store func(*calculator.Group) string
	}{
		{byStore, func(g *calculator.Group) string { return g.Keys[1] }},
		{total, func(*calculator.Group) string { return TotalFormatLabel }},
	}
	for _, block := range blocks {
		for _, year := range years {
			rows, err := collect(block.agg, year, block.store)
			if err != nil {
				return sheet, err
			}
			label := fmt.Sprintf("progresion %d", year)
			period := fmt.Sprintf("%02d", year%100)
			for _, r := range rows {
				if !keep(r) {
					continue
				}
				sheet.Rows = append(sheet.Rows, []any{
					r.store,
					r.month.String(),
					r.month.Ordinal(),
					string(r.category),
					label,
					CellValue(r.cell),
					fmt.Sprintf("%02d-%s", r.month.Ordinal(), period),
				})
			}
		}
	}
	return sheet, nil
}
