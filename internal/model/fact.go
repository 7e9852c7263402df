package model

import "strconv"

// Category 指标类别
type Category string

const (
	CategorySales   Category = "VCT" // 含税销售额
	CategoryVolume  Category = "VOL" // 销量（件数，剔除包装）
	CategoryTickets Category = "DEB" // 小票数（débitos）
)

// AllCategories 全部类别（宽表列顺序）
func AllCategories() []Category {
	return []Category{CategoryTickets, CategorySales, CategoryVolume}
}

// ParseCategory 解析类别代码
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategorySales, CategoryVolume, CategoryTickets:
		return Category(s), true
	}
	return "", false
}

// Dimension 分组维度
type Dimension string

const (
	DimFormat   Dimension = "direccion"
	DimStore    Dimension = "punto_operacional"
	DimStoreID  Dimension = "numero_operacional"
	DimProvince Dimension = "provincia"
	DimSector   Dimension = "sector"
	DimSection  Dimension = "seccion"
	DimFamily   Dimension = "grupo_de_familia"
	DimMonth    Dimension = "mes"
)

// ParseDimension 解析维度名
func ParseDimension(s string) (Dimension, bool) {
	switch d := Dimension(s); d {
	case DimFormat, DimStore, DimStoreID, DimProvince, DimSector, DimSection, DimFamily, DimMonth:
		return d, true
	}
	return "", false
}

// Fact 规范化后的交易记录（一次运行内不可变）
type Fact struct {
	Year      int      `json:"year"`
	MonthRaw  string   `json:"monthRaw"` // 原始"Mes"列，例如 "Agosto 2025"
	Month     Month    `json:"month"`    // 解析失败时为 0
	Format    string   `json:"format"`   // Direccion
	StoreID   int      `json:"storeId"`
	Store     string   `json:"store"` // Punto Operacional ("code - name")
	Sector    string   `json:"sector,omitempty"`
	Section   string   `json:"section,omitempty"`
	Family    string   `json:"family,omitempty"`
	Category  Category `json:"category"`
	Value     float64  `json:"value"`
	SourceRow int      `json:"sourceRow"`
}

// RegistryEntry 门店登记表（padrón）条目
type RegistryEntry struct {
	StoreID      int                `json:"storeId"`
	Name         string             `json:"name"`
	OpeningDate  string             `json:"openingDate"` // dd/mm/yyyy
	Organization string             `json:"organization"`
	Province     string             `json:"province"`
	Closing      string             `json:"closing"`
	Surfaces     map[string]float64 `json:"surfaces,omitempty"`
	Flags        map[Month]string   `json:"flags"`
}

// Flag 指定月份的可比面积标记（已大写），缺失时返回 false
func (r *RegistryEntry) Flag(m Month) (string, bool) {
	if r == nil || r.Flags == nil {
		return "", false
	}
	v, ok := r.Flags[m]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// JoinedFact 交易记录左连接登记表后的行；Registry 为 nil 表示未匹配
type JoinedFact struct {
	Fact
	Registry *RegistryEntry `json:"registry,omitempty"`
}

// Matched 是否匹配到登记表
func (j *JoinedFact) Matched() bool {
	return j.Registry != nil
}

// Dim 取维度值；值缺失时 ok=false（该行不参与此维度的分组）
func (j *JoinedFact) Dim(d Dimension) (string, bool) {
	var v string
	switch d {
	case DimFormat:
		v = j.Format
	case DimStore:
		v = j.Store
	case DimStoreID:
		return strconv.Itoa(j.StoreID), true
	case DimProvince:
		if j.Registry == nil {
			return "", false
		}
		v = j.Registry.Province
	case DimSector:
		v = j.Sector
	case DimSection:
		v = j.Section
	case DimFamily:
		v = j.Family
	case DimMonth:
		if !j.Month.Valid() {
			return "", false
		}
		return j.Month.String(), true
	default:
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, true
}
