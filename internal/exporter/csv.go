package exporter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/juanifmera/progresion/internal/model"
)

// zipEpoch ZIP 条目的固定修改时间，保证相同输入得到相同字节
var zipEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// FormatValue 单元格值的文本形式：nil 为空，浮点数用最短表示
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		switch {
		case math.IsNaN(x):
			return "nan", nil
		case math.IsInf(x, 1):
			return "inf", nil
		case math.IsInf(x, -1):
			return "-inf", nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return "", fmt.Errorf("unsupported cell value %T", v)
}

// WriteCSV 把单张表写为 UTF-8 CSV
func WriteCSV(sheet model.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(sheet.Header); err != nil {
		return nil, err
	}
	record := make([]string, 0, len(sheet.Header))
	for i, row := range sheet.Rows {
		record = record[:0]
		for j, v := range row {
			s, err := FormatValue(v)
			if err != nil {
				return nil, fmt.Errorf("sheet %q row %d column %d: %w", sheet.Name, i+1, j+1, err)
			}
			record = append(record, s)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ZipEntryName ZIP 内第 i 个 CSV 的文件名（从 01 开始编号）
func ZipEntryName(i int, label string) string {
	return fmt.Sprintf("%02d - %s.csv", i+1, label)
}

// WriteZip 每张表一个 CSV 打包为 ZIP；任一表失败则整体失败
func WriteZip(bundle *model.ReportBundle, progress ProgressFunc) ([]byte, error) {
	if bundle == nil || len(bundle.Sheets) == 0 {
		return nil, ErrEmptyBundle
	}
	names := make([]string, len(bundle.Sheets))
	for i, s := range bundle.Sheets {
		names[i] = s.Name
	}
	labels := UniqueSheetNames(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, sheet := range bundle.Sheets {
		data, err := WriteCSV(sheet)
		if err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     ZipEntryName(i, labels[i]),
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		reportProgress(progress, sheetPercent(i, len(bundle.Sheets)), labels[i])
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
