package report

import (
	"fmt"
	"strings"

	"github.com/juanifmera/progresion/internal/calculator"
	"github.com/juanifmera/progresion/internal/model"
)

// ComparableSuffix 可比面积工作表名后缀
const ComparableSuffix = " - SC"

// Layout 工作表版式
type Layout string

const (
	LayoutWide  Layout = "wide"  // 每个维度键一行，列为 上年·类别 / 本年·类别 / progresion·类别
	LayoutLong  Layout = "long"  // 每个类别一行：categoria, 上年, 本年, progresion
	LayoutYears Layout = "years" // 明细：维度键 + categoria + 上年 + 本年（不计算同比）
)

// SheetSpec 声明式工作表定义
type SheetSpec struct {
	Name       string            `json:"name"`                 // 工作表名（不含后缀）
	NameExpr   string            `json:"nameExpr,omitempty"`   // 名称表达式，优先于 Name
	Dimensions []model.Dimension `json:"dimensions"`
	Categories []model.Category  `json:"categories,omitempty"` // 空表示全部类别
	Layout     Layout            `json:"layout"`
	SortKeys   []model.Dimension `json:"sortKeys,omitempty"` // 先按这些维度降序，再按 VOL 同比降序
	Where      string            `json:"where,omitempty"`    // 行过滤表达式
	When       string            `json:"when,omitempty"`     // 工作表生成条件
}

// sortSpec 转换为计算器的排序规格
func (s SheetSpec) sortSpec() (calculator.SortSpec, error) {
	spec := calculator.SortSpec{By: model.CategoryVolume}
	for _, k := range s.SortKeys {
		idx := -1
		for i, d := range s.Dimensions {
			if d == k {
				idx = i
				break
			}
		}
		if idx < 0 {
			return spec, fmt.Errorf("sheet %q: sort key %q is not one of its dimensions", s.Name, k)
		}
		spec.KeysDesc = append(spec.KeysDesc, idx)
	}
	return spec, nil
}

func (s SheetSpec) categories() []model.Category {
	if len(s.Categories) == 0 {
		return model.AllCategories()
	}
	// 列顺序固定为 DEB, VCT, VOL
	want := make(map[model.Category]bool, len(s.Categories))
	for _, c := range s.Categories {
		want[c] = true
	}
	var out []model.Category
	for _, c := range model.AllCategories() {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

// Validate 校验工作表定义
func (s SheetSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" && s.NameExpr == "" {
		return fmt.Errorf("%w: sheet without name", ErrInvalidRequest)
	}
	switch s.Layout {
	case LayoutWide, LayoutYears:
		if len(s.Dimensions) == 0 {
			return fmt.Errorf("%w: sheet %q: %s layout needs dimensions", ErrInvalidRequest, s.Name, s.Layout)
		}
	case LayoutLong:
	default:
		return fmt.Errorf("%w: sheet %q: unknown layout %q", ErrInvalidRequest, s.Name, s.Layout)
	}
	for _, c := range s.Categories {
		if _, ok := model.ParseCategory(string(c)); !ok {
			return fmt.Errorf("%w: sheet %q: unknown category %q", ErrInvalidRequest, s.Name, c)
		}
	}
	for _, d := range s.Dimensions {
		if _, ok := model.ParseDimension(string(d)); !ok {
			return fmt.Errorf("%w: sheet %q: unknown dimension %q", ErrInvalidRequest, s.Name, d)
		}
	}
	_, err := s.sortSpec()
	return err
}

// Definition 报表类型定义
type Definition struct {
	Kind        Kind        `json:"kind"`
	Description string      `json:"description"`
	Sheets      []SheetSpec `json:"sheets,omitempty"`
	// YearToDate 只统计月份序号 <= 所选月份的行
	YearToDate bool `json:"yearToDate"`
}

var (
	salesVolume = []model.Category{model.CategorySales, model.CategoryVolume}

	dFormat   = model.DimFormat
	dStore    = model.DimStore
	dProvince = model.DimProvince
	dSector   = model.DimSector
	dSection  = model.DimSection
	dFamily   = model.DimFamily
)

func dims(d ...model.Dimension) []model.Dimension { return d }

// builtinDefinitions 内置报表定义
func builtinDefinitions() map[Kind]Definition {
	return map[Kind]Definition{
		KindMonthly: {
			Kind:        KindMonthly,
			Description: "Progresiones del mes cerrado sobre superficie comparable",
			Sheets: []SheetSpec{
				{NameExpr: `"Prog " + company`, Name: "Prog Compania", Layout: LayoutLong},
				{Name: "Prog x Formatos", Dimensions: dims(dFormat), Layout: LayoutWide},
				{Name: "Prog x Provincia", Dimensions: dims(dProvince), Layout: LayoutWide},
				{Name: "Prog x Tiendas", Dimensions: dims(dFormat, dStore), Layout: LayoutWide, SortKeys: dims(dFormat)},
				{Name: "Progresiones x Sector", Dimensions: dims(dSector), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Progresiones x Seccion", Dimensions: dims(dSection), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Progresiones x GF", Dimensions: dims(dFamily), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Sector x Tienda", Dimensions: dims(dFormat, dStore, dSector), Categories: salesVolume, Layout: LayoutWide, SortKeys: dims(dFormat, dStore, dSector)},
				{Name: "Prog Seccion x Tienda", Dimensions: dims(dFormat, dStore, dSection), Categories: salesVolume, Layout: LayoutWide, SortKeys: dims(dFormat, dStore, dSection)},
				{Name: "Prog GF x Tienda", Dimensions: dims(dFormat, dStore, dFamily), Categories: salesVolume, Layout: LayoutWide, SortKeys: dims(dFormat, dStore, dFamily)},
				{Name: "Prog Aperturado x Tienda", Dimensions: dims(dFormat, dStore, dSector, dSection, dFamily), Categories: salesVolume, Layout: LayoutYears},
			},
		},
		KindAccumulated: {
			Kind:        KindAccumulated,
			Description: "Progresiones acumuladas de enero al mes seleccionado",
			YearToDate:  true,
			Sheets: []SheetSpec{
				{NameExpr: `"Prog Acum " + format`, Name: "Prog Acum Formato", Layout: LayoutLong},
				{Name: "Prog Acum Provincia", Dimensions: dims(dProvince), Layout: LayoutWide},
				{Name: "Prog Acum Tiendas", Dimensions: dims(dStore), Layout: LayoutWide},
				{Name: "Prog Acum Sector", Dimensions: dims(dSector), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Acum Seccion", Dimensions: dims(dSection), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Acum GF", Dimensions: dims(dFamily), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Sector x Tienda", Dimensions: dims(dStore, dSector), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Seccion x Tienda", Dimensions: dims(dStore, dSection), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog GF x Tienda", Dimensions: dims(dStore, dFamily), Categories: salesVolume, Layout: LayoutWide},
				{Name: "Prog Aperturado x Tienda", Dimensions: dims(dFormat, dStore, dSector, dSection, dFamily), Categories: salesVolume, Layout: LayoutYears, When: `format != "PROXIMIDAD"`},
			},
		},
		KindComparison: {
			Kind:        KindComparison,
			Description: "Serie mensual de progresiones por tienda contra el total del formato",
		},
		KindConsolidated: {
			Kind:        KindConsolidated,
			Description: "Tabla consolidada de hechos cruzada con el padrón",
		},
	}
}

// Catalog 报表定义目录（内置定义 + 配置追加的工作表）
type Catalog struct {
	defs map[Kind]Definition
}

// NewCatalog 创建目录；extra 为按报表类型追加的自定义工作表
func NewCatalog(extra map[Kind][]SheetSpec) (*Catalog, error) {
	defs := builtinDefinitions()
	for kind, sheets := range extra {
		def, ok := defs[kind]
		if !ok {
			return nil, fmt.Errorf("%w: breakdown for unknown report kind %q", ErrInvalidRequest, kind)
		}
		if def.Sheets == nil {
			return nil, fmt.Errorf("%w: report kind %q does not accept custom sheets", ErrInvalidRequest, kind)
		}
		for _, s := range sheets {
			if err := s.Validate(); err != nil {
				return nil, err
			}
		}
		def.Sheets = append(append([]SheetSpec(nil), def.Sheets...), sheets...)
		defs[kind] = def
	}
	return &Catalog{defs: defs}, nil
}

// Get 取报表定义
func (c *Catalog) Get(kind Kind) (Definition, bool) {
	def, ok := c.defs[kind]
	return def, ok
}

// List 按固定顺序列出全部定义
func (c *Catalog) List() []Definition {
	order := []Kind{KindMonthly, KindAccumulated, KindComparison, KindConsolidated}
	out := make([]Definition, 0, len(order))
	for _, k := range order {
		if def, ok := c.defs[k]; ok {
			out = append(out, def)
		}
	}
	return out
}
