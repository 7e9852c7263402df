package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadOptions 读取参数
type ReadOptions struct {
	HeaderRow int    // 表头所在行（0 起，空行不计）
	Encoding  string // CSV 编码：auto/utf-8/utf-16/latin1
	Sheet     string // XLSX 工作表名，空则取第一个
	Raw       bool   // XLSX 读取原始值（日期为序列号）
}

// RawTable 固定版式文件读取后的原始表格
type RawTable struct {
	Source    string
	HeaderRow int
	Encoding  string
	Header    []string
	Rows      [][]string
	// RowNumbers 与 Rows 对应的文件行号（1 起）
	RowNumbers []int
}

// Index 列下标（按去空格后的名称精确匹配），不存在返回 -1
func (t *RawTable) Index(name string) int {
	want := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.TrimSpace(h) == want {
			return i
		}
	}
	return -1
}

// Require 校验必需列，缺失时返回 *ShapeError
func (t *RawTable) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Index(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &ShapeError{Source: t.Source, HeaderRow: t.HeaderRow, Missing: missing}
	}
	return nil
}

// Cell 取单元格（越界返回空串）
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// ReadTable 按扩展名选择 CSV 或 XLSX 读取
func ReadTable(source string, r io.Reader, opts ReadOptions) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXTable(source, r, opts)
	default:
		return ReadCSVTable(source, r, opts)
	}
}

// ReadCSVTable 读取 CSV 报表（自动识别编码，逗号分隔，支持引号）
func ReadCSVTable(source string, r io.Reader, opts ReadOptions) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	text, enc, err := DecodeText(data, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	var lines []int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: parse csv: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	table, err := buildTable(source, records, lines, opts.HeaderRow)
	if err != nil {
		return nil, err
	}
	table.Encoding = enc
	return table, nil
}

// ReadXLSXTable 读取 XLSX 工作表
func ReadXLSXTable(source string, r io.Reader, opts ReadOptions) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &ShapeError{Source: source, HeaderRow: opts.HeaderRow, Missing: []string{"<sheet>"}}
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, &ShapeError{Source: source, HeaderRow: opts.HeaderRow, Missing: []string{"<sheet " + sheet + ">"}}
	}

	var rowOpts []excelize.Options
	if opts.Raw {
		rowOpts = append(rowOpts, excelize.Options{RawCellValue: true})
	}
	rows, err := f.GetRows(sheet, rowOpts...)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return buildTable(source, rows, lines, opts.HeaderRow)
}

func buildTable(source string, records [][]string, lines []int, headerRow int) (*RawTable, error) {
	if headerRow < 0 || headerRow >= len(records) {
		return nil, &ShapeError{
			Source:    source,
			HeaderRow: headerRow,
			Missing:   []string{fmt.Sprintf("<header row %d of %d>", headerRow, len(records))},
		}
	}

	header := DedupeHeader(records[headerRow])
	table := &RawTable{
		Source:    source,
		HeaderRow: headerRow,
		Header:    header,
	}
	for i := headerRow + 1; i < len(records); i++ {
		rec := records[i]
		if isBlankRecord(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, lines[i])
	}
	return table, nil
}

// DedupeHeader 重复列名依次追加 .1 .2 ...，空列名记为 "Unnamed: i"
func DedupeHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for _, h := range raw {
		taken[h] = true
	}
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		name := h + "." + strconv.Itoa(n)
		for taken[name] {
			n++
			name = h + "." + strconv.Itoa(n)
		}
		seen[h] = n + 1
		taken[name] = true
		out[i] = name
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
