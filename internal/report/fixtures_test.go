package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
)

const salesHeader = "Año,Mes,Direccion,Punto Operacional,Sector,Seccion,Grupo de Familia,Ventas c/impuesto,Venta en Unidades\n"

// 两家可比门店 + 一家不在登记表中的门店，只有八月
const augustSales = `2024,Agosto 2024,%[1]s,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.000,00","100,0"
2025,Agosto 2025,%[1]s,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.200,00","110,0"
2024,Agosto 2024,%[1]s,2 - HIPER DOS,ALMACEN,LACTEOS,LECHES,"400,00","40,0"
2025,Agosto 2025,%[1]s,2 - HIPER DOS,ALMACEN,LACTEOS,LECHES,"300,00","40,0"
2025,Agosto 2025,%[1]s,9 - SIN PADRON,ALMACEN,BEBIDAS,GASEOSAS,"50,00","5,0"
`

const otherMonthsSales = `2024,Julio 2024,%[1]s,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"500,00","50,0"
2025,Julio 2025,%[1]s,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"600,00","50,0"
2025,Septiembre 2025,%[1]s,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"999,00","99,0"
`

const augustTickets = `Debitos
Año,Mes,Direccion,Punto Operacional,Cant. Tickets por Local
2024,Agosto 2024,%[1]s,1 - HIPER UNO,1.000
2025,Agosto 2025,%[1]s,1 - HIPER UNO,1.100
`

type fixture struct {
	format     string
	withMonths bool
	registry   []any // 表头（第 18 行）
}

func salesCSV(fx fixture) string {
	body := fmt.Sprintf(augustSales, fx.format)
	if fx.withMonths {
		body += fmt.Sprintf(otherMonthsSales, fx.format)
	}
	return "Ventas\n" + salesHeader + body
}

func registryXLSX(t *testing.T, header []any) []byte {
	t.Helper()
	if header == nil {
		header = []any{"N°", "NOMBRE", "Fecha apertura", "PROVINCIA", "JUL", "AGO"}
	}
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetRow("Sheet1", "A18", &header))
	rows := [][]any{
		{1, "HIPER UNO", 40179, "BUENOS AIRES", "SC", "SC"},
		{2, "HIPER DOS", 40179, "CORDOBA", "SC", "sc"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, 19+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testInputs(t *testing.T, fx fixture) importer.Inputs {
	t.Helper()
	if fx.format == "" {
		fx.format = "HIPER"
	}
	return importer.Inputs{
		Sales:    importer.Source{Name: "ventas.csv", Reader: strings.NewReader(salesCSV(fx))},
		Tickets:  importer.Source{Name: "debitos.csv", Reader: strings.NewReader(fmt.Sprintf(augustTickets, fx.format))},
		Registry: importer.Source{Name: "padron.xlsx", Reader: bytes.NewReader(registryXLSX(t, fx.registry))},
		Month:    model.Agosto,
	}
}

func testCoordinator() *importer.Coordinator {
	return importer.NewCoordinator(importer.Options{
		Extract:  parser.ReadOptions{HeaderRow: 1},
		Registry: parser.RegistryOptions{HeaderRow: parser.DefaultRegistryHeaderRow},
	})
}

func testDataset(t *testing.T, fx fixture) *importer.Dataset {
	t.Helper()
	ds, err := testCoordinator().Load(context.Background(), testInputs(t, fx), nil)
	require.NoError(t, err)
	return ds
}

func testBuilder(t *testing.T, extra map[Kind][]SheetSpec) *Builder {
	t.Helper()
	catalog, err := NewCatalog(extra)
	require.NoError(t, err)
	return NewBuilder(catalog, BuildOptions{})
}

func findSheet(t *testing.T, bundle *model.ReportBundle, name string) model.Sheet {
	t.Helper()
	for _, s := range bundle.Sheets {
		if s.Name == name {
			return s
		}
	}
	require.Failf(t, "sheet not found", "%q", name)
	return model.Sheet{}
}

func sheetNames(bundle *model.ReportBundle) []string {
	out := make([]string, 0, len(bundle.Sheets))
	for _, s := range bundle.Sheets {
		out = append(out, s.Name)
	}
	return out
}
