package model

import "math"

// Cell 可空数值；Valid=false 表示缺失（不是 0）
type Cell struct {
	Value float64
	Valid bool
}

// NewCell 创建有效单元格
func NewCell(v float64) Cell {
	return Cell{Value: v, Valid: true}
}

// NullCell 缺失单元格
func NullCell() Cell {
	return Cell{}
}

// Finite 有效且为有限数
func (c Cell) Finite() bool {
	return c.Valid && !math.IsNaN(c.Value) && !math.IsInf(c.Value, 0)
}

// Metric 单一类别的同比指标
type Metric struct {
	Prior       Cell `json:"prior"`
	Current     Cell `json:"current"`
	Progression Cell `json:"progression"`
}

// ProgressionRow 宽表中的一行（维度键 + 各类别指标）
type ProgressionRow struct {
	Keys    []string            `json:"keys"`
	Metrics map[Category]Metric `json:"metrics"`
}

// Metric 取类别指标（未出现时为全空）
func (r *ProgressionRow) Metric(c Category) Metric {
	if r.Metrics == nil {
		return Metric{}
	}
	return r.Metrics[c]
}

// ProgressionTable 同比宽表
type ProgressionTable struct {
	Dimensions  []Dimension      `json:"dimensions"`
	Categories  []Category       `json:"categories"`
	PriorYear   int              `json:"priorYear"`
	CurrentYear int              `json:"currentYear"`
	Rows        []ProgressionRow `json:"rows"`
}
