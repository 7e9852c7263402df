package exporter

import (
	"archive/zip"
	"bytes"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/model"
)

func testBundle(format model.ArtifactFormat) *model.ReportBundle {
	return &model.ReportBundle{
		Kind:   "monthly",
		Format: format,
		Sheets: []model.Sheet{
			{
				Name:   "Prog x Formatos - SC",
				Header: []string{"direccion", "2023 VCT", "2024 VCT", "progresion VCT"},
				Rows: [][]any{
					{"HIPER", 1000.0, 1200.0, 20.0},
					{"MARKET", 500.0, nil, nil},
				},
			},
			{
				Name:   "Prog Aperturado x Tienda - SC",
				Header: []string{"punto_operacional", "categoria", "2023", "2024"},
				Rows: [][]any{
					{"Tienda 1", "VOL", 10.0, 12.5},
				},
			},
		},
	}
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "Prog x Tiendas - SC", SanitizeSheetName("Prog x Tiendas - SC"))
	assert.Equal(t, "Ventas (1)-2 - SC", SanitizeSheetName("Ventas [1]/2 - SC"))
	assert.Equal(t, "Hoja", SanitizeSheetName("  "))

	long := SanitizeSheetName("Prog Aperturado por Tienda y Familia - SC")
	assert.Len(t, []rune(long), MaxSheetNameLength)
	assert.True(t, strings.HasSuffix(long, " - SC"))
	assert.Equal(t, "Prog Aperturado por Tienda - SC", long)
}

func TestUniqueSheetNames(t *testing.T) {
	names := UniqueSheetNames([]string{
		"Prog Sector x Tienda - SC",
		"prog sector x tienda - SC",
		"Prog Aperturado por Tienda y Familia - SC",
		"Prog Aperturado por Tienda y Familia - SC",
	})
	assert.Equal(t, "Prog Sector x Tienda - SC", names[0])
	assert.Equal(t, "prog sector x tienda 2 - SC", names[1])
	assert.True(t, strings.HasSuffix(names[3], " 2 - SC"))
	assert.LessOrEqual(t, len([]rune(names[3])), MaxSheetNameLength)
	assert.NotEqual(t, names[2], names[3])
}

func TestFormatValue(t *testing.T) {
	cases := map[string]any{
		"":      nil,
		"20":    20.0,
		"0.1":   0.1,
		"-12.5": -12.5,
		"7":     7,
		"nan":   math.NaN(),
		"-inf":  math.Inf(-1),
		"SC":    "SC",
	}
	for want, in := range cases {
		got, err := FormatValue(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatValue(struct{}{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	data, err := WriteCSV(testBundle(model.FormatCSV).Sheets[0])
	require.NoError(t, err)
	assert.Equal(t,
		"direccion,2023 VCT,2024 VCT,progresion VCT\nHIPER,1000,1200,20\nMARKET,500,,\n",
		string(data))
}

func TestWriteZip(t *testing.T) {
	var events []ProgressEvent
	data, err := WriteZip(testBundle(model.FormatZIP), func(e ProgressEvent) { events = append(events, e) })
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "01 - Prog x Formatos - SC.csv", zr.File[0].Name)
	assert.Equal(t, "02 - Prog Aperturado x Tienda - SC.csv", zr.File[1].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "punto_operacional,categoria,2023,2024\nTienda 1,VOL,10,12.5\n", string(body))

	require.Len(t, events, 2)
	assert.Equal(t, 100, events[1].Percent)

	again, err := WriteZip(testBundle(model.FormatZIP), nil)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestWriteWorkbook(t *testing.T) {
	data, err := WriteWorkbook(testBundle(model.FormatXLSX), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Prog x Formatos - SC", "Prog Aperturado x Tienda - SC"}, f.GetSheetList())
	rows, err := f.GetRows("Prog x Formatos - SC")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"direccion", "2023 VCT", "2024 VCT", "progresion VCT"}, rows[0])
	assert.Equal(t, []string{"HIPER", "1000", "1200", "20"}, rows[1])
	assert.Equal(t, "MARKET", rows[2][0])
}

func TestExport(t *testing.T) {
	art, err := Export(testBundle(model.FormatXLSX), "Progresiones MMAA - Agosto", nil)
	require.NoError(t, err)
	assert.Equal(t, "Progresiones MMAA - Agosto.xlsx", art.FileName)
	assert.Equal(t, ContentTypeXLSX, art.ContentType)
	assert.NotEmpty(t, art.Data)

	art, err = Export(testBundle(model.FormatZIP), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "x.zip", art.FileName)

	_, err = Export(testBundle(model.FormatCSV), "x", nil)
	assert.ErrorIs(t, err, ErrMultipleSheets)

	_, err = Export(&model.ReportBundle{Format: model.FormatXLSX}, "x", nil)
	assert.ErrorIs(t, err, ErrEmptyBundle)
}

func TestExportIsAllOrNothing(t *testing.T) {
	bundle := testBundle(model.FormatZIP)
	bundle.Sheets[1].Rows = append(bundle.Sheets[1].Rows, []any{"Tienda 2", "VOL", struct{}{}, 1.0})

	art, err := Export(bundle, "x", nil)
	assert.Error(t, err)
	assert.Nil(t, art)
}
