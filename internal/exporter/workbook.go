package exporter

import (
	"bytes"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/model"
)

const (
	keyColumnWidth   = 28
	valueColumnWidth = 14
)

// WriteWorkbook 每张表一个工作表，写入内存中的 xlsx
func WriteWorkbook(bundle *model.ReportBundle, progress ProgressFunc) ([]byte, error) {
	if bundle == nil || len(bundle.Sheets) == 0 {
		return nil, ErrEmptyBundle
	}
	names := make([]string, len(bundle.Sheets))
	for i, s := range bundle.Sheets {
		names[i] = s.Name
	}
	names = UniqueSheetNames(names)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, sheet := range bundle.Sheets {
		name := names[i]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, name, sheet, headerStyle); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		reportProgress(progress, sheetPercent(i, len(bundle.Sheets)), name)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSheet(f *excelize.File, name string, sheet model.Sheet, headerStyle int) error {
	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if len(sheet.Header) > 0 {
		if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
			return err
		}
	}

	keys := 0
	for i, row := range sheet.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			cv, err := workbookValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			values[j] = cv
			if i == 0 {
				if _, ok := v.(string); ok && j == keys {
					keys++
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return setColumnWidths(f, name, len(sheet.Header), keys)
}

// workbookValue 非有限浮点数以文本写入，其余类型原样交给 excelize
func workbookValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int, int64, bool:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FormatValue(x)
		}
		return x, nil
	}
	return nil, fmt.Errorf("unsupported cell value %T", v)
}

func setColumnWidths(f *excelize.File, name string, columns, keys int) error {
	for c := 1; c <= columns; c++ {
		col, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return err
		}
		width := float64(valueColumnWidth)
		if c <= keys {
			width = keyColumnWidth
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
