package calculator

import (
	"math"
	"sort"

	"github.com/juanifmera/progresion/internal/model"
)

// Pivot 将汇总结果转为同比宽表：年份成列，并计算同比
// 上年与本年均无数据的分组不输出
func Pivot(agg *Aggregation, priorYear, currentYear int, policy UndefinedPolicy) model.ProgressionTable {
	table := model.ProgressionTable{
		Dimensions:  agg.Dimensions,
		Categories:  agg.Categories,
		PriorYear:   priorYear,
		CurrentYear: currentYear,
	}
	for _, g := range agg.Groups {
		row := model.ProgressionRow{
			Keys:    g.Keys,
			Metrics: make(map[model.Category]model.Metric, len(agg.Categories)),
		}
		present := false
		for _, c := range agg.Categories {
			prior := g.Value(c, priorYear)
			current := g.Value(c, currentYear)
			if prior.Valid || current.Valid {
				present = true
			}
			row.Metrics[c] = model.Metric{
				Prior:       prior,
				Current:     current,
				Progression: ApplyPolicy(Progression(prior, current), policy),
			}
		}
		if present {
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}

// SortSpec 宽表排序：先按 KeysDesc 指定的维度列降序，再按 By 类别同比降序（无定义在后），
// 最后按全部维度列升序保证结果确定
type SortSpec struct {
	KeysDesc []int
	By       model.Category
}

// DefaultSort 按 VOL 同比降序
var DefaultSort = SortSpec{By: model.CategoryVolume}

// SortTable 原地排序
func SortTable(t *model.ProgressionTable, spec SortSpec) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := &t.Rows[i], &t.Rows[j]
		for _, k := range spec.KeysDesc {
			if a.Keys[k] != b.Keys[k] {
				return a.Keys[k] > b.Keys[k]
			}
		}
		if spec.By != "" {
			av, aok := sortValue(a.Metric(spec.By).Progression)
			bv, bok := sortValue(b.Metric(spec.By).Progression)
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok && av != bv:
				return av > bv
			}
		}
		return lessKeys(a.Keys, b.Keys)
	})
}

// SortKeysAsc 按维度列升序排序
func SortKeysAsc(t *model.ProgressionTable) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return lessKeys(t.Rows[i].Keys, t.Rows[j].Keys)
	})
}

func sortValue(c model.Cell) (float64, bool) {
	if !c.Valid || math.IsNaN(c.Value) {
		return 0, false
	}
	return c.Value, true
}

func lessKeys(a, b []string) bool {
	for k := range a {
		if k >= len(b) {
			return false
		}
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}
