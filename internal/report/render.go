package report

import (
	"math"
	"strconv"

	"github.com/juanifmera/progresion/internal/model"
)

const (
	colCategory    = "categoria"
	colProgression = "progresion"
)

// CellValue 单元格输出值：缺失为 nil，非有限数输出 inf / -inf / nan 文本
func CellValue(c model.Cell) any {
	switch {
	case !c.Valid:
		return nil
	case math.IsNaN(c.Value):
		return "nan"
	case math.IsInf(c.Value, 1):
		return "inf"
	case math.IsInf(c.Value, -1):
		return "-inf"
	}
	return c.Value
}

func dimensionHeader(dims []model.Dimension) []string {
	out := make([]string, 0, len(dims))
	for _, d := range dims {
		out = append(out, string(d))
	}
	return out
}

// RenderWide 宽表：维度列 + 上年·类别 + 本年·类别 + progresion·类别
func RenderWide(name string, t model.ProgressionTable) model.Sheet {
	header := dimensionHeader(t.Dimensions)
	prior, current := strconv.Itoa(t.PriorYear), strconv.Itoa(t.CurrentYear)
	for _, group := range []string{prior, current, colProgression} {
		for _, c := range t.Categories {
			header = append(header, group+" "+string(c))
		}
	}

	sheet := model.Sheet{Name: name, Header: header, Rows: make([][]any, 0, len(t.Rows))}
	for i := range t.Rows {
		r := &t.Rows[i]
		row := make([]any, 0, len(header))
		for _, k := range r.Keys {
			row = append(row, k)
		}
		for _, c := range t.Categories {
			row = append(row, CellValue(r.Metric(c).Prior))
		}
		for _, c := range t.Categories {
			row = append(row, CellValue(r.Metric(c).Current))
		}
		for _, c := range t.Categories {
			row = append(row, CellValue(r.Metric(c).Progression))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// RenderLong 长表：每个类别一行（用于公司 / 业态合计）
func RenderLong(name string, t model.ProgressionTable) model.Sheet {
	sheet := model.Sheet{
		Name:   name,
		Header: []string{colCategory, strconv.Itoa(t.PriorYear), strconv.Itoa(t.CurrentYear), colProgression},
	}
	if len(t.Rows) == 0 {
		return sheet
	}
	r := &t.Rows[0]
	for _, c := range t.Categories {
		m := r.Metric(c)
		if !m.Prior.Valid && !m.Current.Valid {
			continue
		}
		sheet.Rows = append(sheet.Rows, []any{
			string(c), CellValue(m.Prior), CellValue(m.Current), CellValue(m.Progression),
		})
	}
	return sheet
}

// RenderYears 明细：维度列 + categoria + 上年 + 本年
func RenderYears(name string, t model.ProgressionTable) model.Sheet {
	header := append(dimensionHeader(t.Dimensions), colCategory, strconv.Itoa(t.PriorYear), strconv.Itoa(t.CurrentYear))
	sheet := model.Sheet{Name: name, Header: header}
	for i := range t.Rows {
		r := &t.Rows[i]
		for _, c := range t.Categories {
			m := r.Metric(c)
			if !m.Prior.Valid && !m.Current.Valid {
				continue
			}
			row := make([]any, 0, len(header))
			for _, k := range r.Keys {
				row = append(row, k)
			}
			row = append(row, string(c), CellValue(m.Prior), CellValue(m.Current))
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet
}
