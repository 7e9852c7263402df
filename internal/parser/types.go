package parser

// SourceKind 输入文件类型
type SourceKind string

const (
	SourceSalesVolume SourceKind = "ventas"  // 销售额 + 销量
	SourceTickets     SourceKind = "debitos" // 小票数
	SourceRegistry    SourceKind = "padron"  // 门店登记表
)

// 规范列名
const (
	ColYear    = "year"
	ColMonth   = "month"
	ColFormat  = "format"
	ColStore   = "store"
	ColSector  = "sector"
	ColSection = "section"
	ColFamily  = "family"
	ColSales   = "sales"
	ColVolume  = "volume"
	ColTickets = "tickets"
)

// FieldMapping 字段映射结果
type FieldMapping struct {
	ColumnIndex int    `json:"columnIndex"` // 源文件列索引
	ColumnName  string `json:"columnName"`  // 源文件列名
	Canonical   string `json:"canonical"`   // 规范列名
}

// NormalizeOptions 交易数据规范化参数
type NormalizeOptions struct {
	ExcludedFamily string   // 销量中需剔除的商品族关键字，逗号分隔（默认 ENVASES）
	Optional       []string // 可缺省的规范列；存在时照常读取
}

// NormalizeResult 规范化结果
type NormalizeResult struct {
	Source      string `json:"source"`
	Rows        int    `json:"rows"`
	Facts       int    `json:"facts"`
	EmptyValues int    `json:"emptyValues"` // 值为空被丢弃的单元格
	Excluded    int    `json:"excluded"`    // 包装类销量被剔除的行
}
