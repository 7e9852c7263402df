package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

func utf16Bytes(t *testing.T, s string) []byte {
	t.Helper()
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func TestDetectEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EncodingUTF16, DetectEncoding(utf16Bytes(t, "Año,Mes\n")))
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("\xEF\xBB\xBFAño,Mes\n")))
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("Año,Mes\n")))
	assert.Equal(t, EncodingLatin1, DetectEncoding([]byte("A\xf1o,Mes\n")))

	noBOM, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte("Punto Operacional,Mes\n"))
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF16LE, DetectEncoding(noBOM))
}

func TestReadCSVTable_UTF16WithTitleRow(t *testing.T) {
	t.Parallel()

	text := "Reporte de ventas\n" +
		"Año,Mes,Punto Operacional,Ventas c/impuesto\n" +
		"2025,Agosto,\"10 - HIPER, NORTE\",\"1.234,5\"\n" +
		"\n" +
		"2024,Agosto,10 - HIPER NORTE\n"

	table, err := ReadCSVTable("ventas.csv", bytes.NewReader(utf16Bytes(t, text)), ReadOptions{HeaderRow: 1})
	require.NoError(t, err)

	assert.Equal(t, EncodingUTF16, table.Encoding)
	assert.Equal(t, []string{"Año", "Mes", "Punto Operacional", "Ventas c/impuesto"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "10 - HIPER, NORTE", table.Rows[0][2])
	assert.Equal(t, "1.234,5", table.Rows[0][3])
	assert.Equal(t, "", table.Rows[1][3], "short rows are padded")
	assert.Equal(t, []int{3, 5}, table.RowNumbers)
}

func TestReadCSVTable_HeaderOffsetBeyondFile(t *testing.T) {
	t.Parallel()

	_, err := ReadCSVTable("debitos.csv", strings.NewReader("only one line\n"), ReadOptions{HeaderRow: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileShape))
}

func TestRawTable_Require(t *testing.T) {
	t.Parallel()

	table := &RawTable{Source: "x.csv", HeaderRow: 1, Header: []string{"Año", "Mes"}}
	require.NoError(t, table.Require("Año", " Mes "))

	err := table.Require("Año", "Direccion", "Sector")
	var shape *ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, []string{"Direccion", "Sector"}, shape.Missing)
	assert.ErrorIs(t, err, ErrFileShape)
}

func TestDedupeHeader(t *testing.T) {
	t.Parallel()

	got := DedupeHeader([]string{"N°", "ENE", "FEB", "ENE", "FEB", "", "ENE", "FEB"})
	assert.Equal(t, []string{"N°", "ENE", "FEB", "ENE.1", "FEB.1", "Unnamed: 5", "ENE.2", "FEB.2"}, got)

	got = DedupeHeader([]string{"A", "A.1", "A"})
	assert.Equal(t, []string{"A", "A.1", "A.2"}, got)
}

func TestReadXLSXTable(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"titulo"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Año", "Mes"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{2025, "Enero"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadTable("datos.xlsx", bytes.NewReader(buf.Bytes()), ReadOptions{HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Año", "Mes"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"2025", "Enero"}, table.Rows[0])
	assert.Equal(t, []int{4}, table.RowNumbers)

	_, err = ReadXLSXTable("datos.xlsx", bytes.NewReader(buf.Bytes()), ReadOptions{Sheet: "Padron"})
	assert.ErrorIs(t, err, ErrFileShape)
}
