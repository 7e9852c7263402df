package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
)

const testSalesCSV = `Ventas
Año,Mes,Direccion,Punto Operacional,Sector,Seccion,Grupo de Familia,Ventas c/impuesto,Venta en Unidades
2024,Agosto 2024,HIPER,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.000,00","100,0"
2025,Agosto 2025,HIPER,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.200,00","110,0"
2025,Agosto 2025,HIPER,9 - SIN PADRON,ALMACEN,BEBIDAS,GASEOSAS,"50,00","5,0"
`

const testTicketsCSV = `Debitos
Año,Mes,Direccion,Punto Operacional,Cant. Tickets por Local
2024,Agosto 2024,HIPER,1 - HIPER UNO,1.000
2025,Agosto 2025,HIPER,1 - HIPER UNO,1.100
`

func testRegistryXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	header := []any{"N°", "NOMBRE", "Fecha apertura", "PROVINCIA", "AGO", "AGO", "AGO"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A18", &header))
	row := []any{1, "HIPER UNO", 40179, "BUENOS AIRES", "", "", "sc"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A19", &row))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testOptions(extractHeaderRow int) Options {
	return Options{
		Extract:  parser.ReadOptions{HeaderRow: extractHeaderRow},
		Registry: parser.RegistryOptions{HeaderRow: parser.DefaultRegistryHeaderRow},
	}
}

func testInputs(t *testing.T) Inputs {
	return Inputs{
		Sales:    Source{Name: "ventas.csv", Reader: strings.NewReader(testSalesCSV)},
		Tickets:  Source{Name: "debitos.csv", Reader: strings.NewReader(testTicketsCSV)},
		Registry: Source{Name: "padron.xlsx", Reader: bytes.NewReader(testRegistryXLSX(t))},
		Month:    model.Agosto,
	}
}

func TestCoordinator_Load(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(testOptions(1))

	var events []ProgressEvent
	ds, err := c.Load(context.Background(), testInputs(t), func(e ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	assert.Len(t, ds.Facts, 8)
	assert.Len(t, ds.Registry, 1)
	assert.Len(t, ds.Joined, 8)
	assert.Len(t, ds.Comparable, 6)
	assert.Equal(t, []int{2024, 2025}, ds.Years)
	assert.Equal(t, 2, ds.JoinStats.Unmatched)

	stats := ds.Stats()
	assert.Equal(t, 8, stats.FactRows)
	assert.Equal(t, 2, stats.DroppedRows)
	assert.Equal(t, 6, stats.ComparableRows)

	require.NotEmpty(t, events)
	assert.Equal(t, model.StageLoad, events[0].Stage)
	assert.Equal(t, "warning", events[len(events)-1].Type)
}

func TestCoordinator_Load_SchemaDrift(t *testing.T) {
	t.Parallel()

	in := testInputs(t)
	in.Month = model.Marzo

	_, err := NewCoordinator(testOptions(1)).Load(context.Background(), in, nil)
	require.ErrorIs(t, err, parser.ErrSchemaDrift)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageRegistry, se.Stage)
}

func TestCoordinator_Load_WrongHeaderOffset(t *testing.T) {
	t.Parallel()

	_, err := NewCoordinator(testOptions(0)).Load(context.Background(), testInputs(t), nil)
	require.ErrorIs(t, err, parser.ErrFileShape)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageLoad, se.Stage)
}

func TestCoordinator_Load_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCoordinator(testOptions(1)).Load(ctx, testInputs(t), nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCoordinator_Load_SwappedFiles(t *testing.T) {
	t.Parallel()

	in := testInputs(t)
	in.Sales, in.Tickets = Source{Name: "debitos.csv", Reader: strings.NewReader(testTicketsCSV)},
		Source{Name: "ventas.csv", Reader: strings.NewReader(testSalesCSV)}

	_, err := NewCoordinator(testOptions(1)).Load(context.Background(), in, nil)
	require.ErrorIs(t, err, parser.ErrFileShape)
	assert.Contains(t, err.Error(), "looks like a debitos export")

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StageLoad, se.Stage)
}

func TestCoordinator_Load_RegistryHeaderOnFirstRow(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	header := []any{"N°", "NOMBRE", "Fecha apertura", "PROVINCIA", "AGO"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	row := []any{1, "HIPER UNO", 40179, "BUENOS AIRES", "SC"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	in := testInputs(t)
	in.Registry = Source{Name: "padron.xlsx", Reader: bytes.NewReader(buf.Bytes())}

	opts := testOptions(1)
	opts.Registry.HeaderRow = 0
	ds, err := NewCoordinator(opts).Load(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Registry, 1)
	assert.Len(t, ds.Comparable, 6)
}
