package model

// ArtifactFormat 导出格式
type ArtifactFormat string

const (
	FormatXLSX ArtifactFormat = "xlsx"
	FormatZIP  ArtifactFormat = "zip"
	FormatCSV  ArtifactFormat = "csv"
)

// ParseArtifactFormat 解析导出格式（空串视为 xlsx）
func ParseArtifactFormat(s string) (ArtifactFormat, bool) {
	switch ArtifactFormat(s) {
	case "", FormatXLSX:
		return FormatXLSX, true
	case FormatZIP, FormatCSV:
		return ArtifactFormat(s), true
	}
	return "", false
}

// Sheet 渲染后的表格（表头 + 行），导出器的最小写入单元
// 单元格取值：nil（空）、string、int、int64、float64
type Sheet struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// RowCount 数据行数（不含表头）
func (s *Sheet) RowCount() int {
	return len(s.Rows)
}

// ReportBundle 报表产物：按顺序排列的命名工作表
type ReportBundle struct {
	Kind   string         `json:"kind"`
	Format ArtifactFormat `json:"format"`
	Sheets []Sheet        `json:"sheets"`
}

// RowCount 全部工作表的行数之和
func (b *ReportBundle) RowCount() int {
	n := 0
	for i := range b.Sheets {
		n += b.Sheets[i].RowCount()
	}
	return n
}

// Artifact 序列化后的导出文件
type Artifact struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}
