package calculator

import (
	"strings"

	"github.com/juanifmera/progresion/internal/model"
)

const keySep = "\x1f"

// Group 一个维度键下按类别、年份汇总的值
type Group struct {
	Keys   []string
	Values map[model.Category]map[int]float64
}

// Value 取类别-年份汇总值；无数据时返回无效单元格
func (g *Group) Value(c model.Category, year int) model.Cell {
	byYear, ok := g.Values[c]
	if !ok {
		return model.NullCell()
	}
	v, ok := byYear[year]
	if !ok {
		return model.NullCell()
	}
	return model.NewCell(v)
}

// HasCategory 该组是否有此类别的数据
func (g *Group) HasCategory(c model.Category) bool {
	return len(g.Values[c]) > 0
}

// Aggregation 分组汇总结果（组按首次出现顺序排列）
type Aggregation struct {
	Dimensions []model.Dimension
	Categories []model.Category
	Groups     []*Group
	index      map[string]*Group
}

// Lookup 按维度键查找分组
func (a *Aggregation) Lookup(keys ...string) (*Group, bool) {
	g, ok := a.index[strings.Join(keys, keySep)]
	return g, ok
}

// RowFilter 行过滤条件
type RowFilter func(*model.JoinedFact) bool

// Aggregate 按维度 + 类别 + 年份分组求和
// 缺少任一维度值的行（例如小票没有 sector、未匹配门店没有 provincia）不参与该分组
func Aggregate(rows []model.JoinedFact, dims []model.Dimension, cats []model.Category, filter RowFilter) *Aggregation {
	if len(cats) == 0 {
		cats = model.AllCategories()
	}
	wanted := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		wanted[c] = true
	}

	agg := &Aggregation{
		Dimensions: dims,
		Categories: cats,
		index:      make(map[string]*Group),
	}
	keys := make([]string, len(dims))
	for i := range rows {
		row := &rows[i]
		if !wanted[row.Category] {
			continue
		}
		if filter != nil && !filter(row) {
			continue
		}
		complete := true
		for d, dim := range dims {
			v, ok := row.Dim(dim)
			if !ok {
				complete = false
				break
			}
			keys[d] = v
		}
		if !complete {
			continue
		}

		id := strings.Join(keys, keySep)
		g, ok := agg.index[id]
		if !ok {
			g = &Group{
				Keys:   append([]string(nil), keys...),
				Values: make(map[model.Category]map[int]float64, len(cats)),
			}
			agg.index[id] = g
			agg.Groups = append(agg.Groups, g)
		}
		byYear, ok := g.Values[row.Category]
		if !ok {
			byYear = make(map[int]float64, 2)
			g.Values[row.Category] = byYear
		}
		byYear[row.Year] += row.Value
	}
	return agg
}
