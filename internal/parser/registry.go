package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/model"
)

// 登记表列名
const (
	RegColName     = "NOMBRE"
	RegColOpening  = "Fecha apertura"
	RegColOrg      = "ORGANIZACIÓN"
	RegColProvince = "PROVINCIA"
	RegColClosing  = "FIN DE CIERRE"
)

// DefaultRegistryHeaderRow 登记表表头所在行（0 起）
const DefaultRegistryHeaderRow = 17

// DefaultRegistryIDColumns 门店编号候选列（按顺序取第一个存在的）
var DefaultRegistryIDColumns = []string{"N°", "GSX"}

var flagColumnRe = regexp.MustCompile(`^([A-Z]{3})(?:\.(\d+))?$`)

// RegistryOptions 登记表解析参数
type RegistryOptions struct {
	HeaderRow int
	Sheet     string
	IDColumns []string
}

// RegistryResult 登记表解析统计
type RegistryResult struct {
	Source     string `json:"source"`
	Rows       int    `json:"rows"`
	Entries    int    `json:"entries"`
	Dropped    int    `json:"dropped"`
	FlagColumn string `json:"flagColumn"` // 实际使用的月份标记列（含 .N 后缀）
}

// ParseRegistry 解析门店登记表（padrón）
// 缺少所选月份标记列时返回 ErrSchemaDrift；缺少编号/名称/开业日期/标记的行被丢弃
func ParseRegistry(source string, r io.Reader, month model.Month, opts RegistryOptions) ([]model.RegistryEntry, RegistryResult, error) {
	result := RegistryResult{Source: source}
	if !month.Valid() {
		return nil, result, fmt.Errorf("invalid comparable month %d", int(month))
	}
	table, err := ReadXLSXTable(source, r, ReadOptions{
		HeaderRow: opts.HeaderRow,
		Sheet:     opts.Sheet,
		Raw:       true,
	})
	if err != nil {
		return nil, result, err
	}
	return BuildRegistry(table, month, opts)
}

// BuildRegistry 由已读取的表格构建登记表条目
func BuildRegistry(table *RawTable, month model.Month, opts RegistryOptions) ([]model.RegistryEntry, RegistryResult, error) {
	result := RegistryResult{Source: table.Source}

	idColumns := opts.IDColumns
	if len(idColumns) == 0 {
		idColumns = DefaultRegistryIDColumns
	}
	idIdx := -1
	for _, c := range idColumns {
		if idx := table.Index(c); idx >= 0 {
			idIdx = idx
			break
		}
	}

	var missing []string
	if idIdx < 0 {
		missing = append(missing, strings.Join(idColumns, "|"))
	}
	for _, c := range []string{RegColName, RegColOpening, RegColProvince} {
		if table.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, result, &ShapeError{Source: table.Source, HeaderRow: table.HeaderRow, Missing: missing}
	}

	flagCols := FlagColumns(table.Header)
	selected, ok := flagCols[month]
	if !ok {
		return nil, result, fmt.Errorf("%w: %s has no %s column", ErrSchemaDrift, table.Source, month.RegistryColumn())
	}
	result.FlagColumn = table.Header[selected]

	nameIdx := table.Index(RegColName)
	openIdx := table.Index(RegColOpening)
	provIdx := table.Index(RegColProvince)
	orgIdx := table.Index(RegColOrg)
	closeIdx := table.Index(RegColClosing)
	surfaceIdx := surfaceColumns(table.Header)

	entries := make([]model.RegistryEntry, 0, len(table.Rows))
	for i := range table.Rows {
		result.Rows++

		id, err := ParseWholeNumber(table.Cell(i, idIdx))
		if err != nil {
			result.Dropped++
			continue
		}
		name := CleanLabel(table.Cell(i, nameIdx))
		opening, ok := FormatOpeningDate(table.Cell(i, openIdx))
		flag := strings.ToUpper(CleanLabel(table.Cell(i, selected)))
		if name == "" || !ok || flag == "" {
			result.Dropped++
			continue
		}

		entry := model.RegistryEntry{
			StoreID:      id,
			Name:         name,
			OpeningDate:  opening,
			Organization: CleanLabel(table.Cell(i, orgIdx)),
			Province:     CleanLabel(table.Cell(i, provIdx)),
			Closing:      CleanLabel(table.Cell(i, closeIdx)),
			Flags:        make(map[model.Month]string, len(flagCols)),
		}
		for m, idx := range flagCols {
			if v := strings.ToUpper(CleanLabel(table.Cell(i, idx))); v != "" {
				entry.Flags[m] = v
			}
		}
		for col, idx := range surfaceIdx {
			raw := strings.TrimSpace(table.Cell(i, idx))
			if raw == "" {
				continue
			}
			if d, err := decimal.NewFromString(raw); err == nil {
				if entry.Surfaces == nil {
					entry.Surfaces = make(map[string]float64)
				}
				entry.Surfaces[col], _ = d.Float64()
			}
		}
		entries = append(entries, entry)
	}
	result.Entries = len(entries)
	return entries, result, nil
}

// FlagColumns 每个月份取最后一次出现的标记列（ENE、ENE.1、ENE.2 中取 ENE.2）
func FlagColumns(header []string) map[model.Month]int {
	keys := make(map[string]model.Month, 12)
	for _, m := range model.AllMonths() {
		keys[m.RegistryColumn()] = m
	}
	out := make(map[model.Month]int, 12)
	for idx, h := range header {
		match := flagColumnRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(h)))
		if match == nil {
			continue
		}
		if m, ok := keys[match[1]]; ok {
			out[m] = idx
		}
	}
	return out
}

func surfaceColumns(header []string) map[string]int {
	out := make(map[string]int)
	for idx, h := range header {
		name := strings.TrimSpace(h)
		upper := strings.ToUpper(name)
		if strings.HasPrefix(upper, "M²") || strings.HasPrefix(upper, "M2 ") {
			out[name] = idx
		}
	}
	return out
}

var openingLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"02-01-2006",
}

// FormatOpeningDate 将开业日期单元格格式化为 dd/mm/yyyy
// 支持 Excel 序列号与常见文本格式
func FormatOpeningDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if IsBlank(raw) {
		return "", false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", false
		}
		return t.Format("02/01/2006"), true
	}
	for _, layout := range openingLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02/01/2006"), true
		}
	}
	return "", false
}
