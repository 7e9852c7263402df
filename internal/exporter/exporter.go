package exporter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/juanifmera/progresion/internal/model"
)

var (
	// ErrEmptyBundle 没有任何工作表可导出
	ErrEmptyBundle = errors.New("report has no sheets to export")
	// ErrMultipleSheets 单个 CSV 只能承载一张表
	ErrMultipleSheets = errors.New("csv export needs exactly one sheet, use zip")
)

// 导出产物的 MIME 类型
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeZip  = "application/zip"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// Export 按报表格式序列化为完整产物；失败时不返回部分结果
func Export(bundle *model.ReportBundle, baseName string, progress ProgressFunc) (*model.Artifact, error) {
	if bundle == nil || len(bundle.Sheets) == 0 {
		return nil, ErrEmptyBundle
	}
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = "progresiones"
	}

	reportProgress(progress, 0, "export")
	var (
		data        []byte
		contentType string
		err         error
	)
	switch bundle.Format {
	case model.FormatXLSX, "":
		data, err = WriteWorkbook(bundle, progress)
		contentType = ContentTypeXLSX
	case model.FormatZIP:
		data, err = WriteZip(bundle, progress)
		contentType = ContentTypeZip
	case model.FormatCSV:
		if len(bundle.Sheets) != 1 {
			return nil, fmt.Errorf("%w: %d sheets", ErrMultipleSheets, len(bundle.Sheets))
		}
		data, err = WriteCSV(bundle.Sheets[0])
		contentType = ContentTypeCSV
		reportProgress(progress, 100, bundle.Sheets[0].Name)
	default:
		return nil, fmt.Errorf("unknown export format %q", bundle.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", bundle.Format, err)
	}

	format := bundle.Format
	if format == "" {
		format = model.FormatXLSX
	}
	return &model.Artifact{
		FileName:    baseName + "." + string(format),
		ContentType: contentType,
		Data:        data,
	}, nil
}
