package report

import (
	"strings"

	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
)

type consolidatedKey struct {
	year     int
	monthRaw string
	format   string
	storeID  int
	store    string
	category model.Category
}

// buildConsolidated 连接后的事实表导出：按 年/月/业态/门店/类别 汇总，附登记表属性
// comparable 口径只含可比面积行，total 口径包含全部行（未匹配门店的登记表列为空）
func buildConsolidated(ds *importer.Dataset, req Request) model.Sheet {
	rows := ds.Comparable
	name := "Join" + ComparableSuffix
	if req.Scope == ScopeTotal {
		rows = ds.Joined
		name = "Join Total"
	}

	sheet := model.Sheet{
		Name: name,
		Header: []string{
			"año", "fecha", "direccion", "numero_operacional", "punto_operacional",
			"fecha_apertura", "fin_de_cierre", "provincia", "categoria", "valores",
			req.Month.Key(), "mes",
		},
	}

	type entry struct {
		key      consolidatedKey
		registry *model.RegistryEntry
		value    float64
	}
	index := make(map[consolidatedKey]int)
	var entries []entry
	for i := range rows {
		r := &rows[i]
		k := consolidatedKey{r.Year, r.MonthRaw, r.Format, r.StoreID, r.Store, r.Category}
		if pos, ok := index[k]; ok {
			entries[pos].value += r.Value
			continue
		}
		index[k] = len(entries)
		entries = append(entries, entry{key: k, registry: r.Registry, value: r.Value})
	}

	for _, e := range entries {
		row := []any{
			e.key.year,
			e.key.monthRaw,
			e.key.format,
			e.key.storeID,
			e.key.store,
			nil, nil, nil,
			string(e.key.category),
			e.value,
			nil,
			monthName(e.key.monthRaw),
		}
		if e.registry != nil {
			row[5] = e.registry.OpeningDate
			row[6] = nullable(e.registry.Closing)
			row[7] = nullable(e.registry.Province)
			if flag, ok := e.registry.Flag(req.Month); ok {
				row[10] = flag
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func monthName(raw string) any {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
