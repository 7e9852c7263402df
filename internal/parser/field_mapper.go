package parser

// defaultRenames 源列名（规范化后）到规范列名
var defaultRenames = map[string]string{
	"año":                     ColYear,
	"ano":                     ColYear,
	"mes":                     ColMonth,
	"direccion":               ColFormat,
	"dirección":               ColFormat,
	"punto_operacional":       ColStore,
	"sector":                  ColSector,
	"seccion":                 ColSection,
	"sección":                 ColSection,
	"grupo_de_familia":        ColFamily,
	"ventas_c/impuesto":       ColSales,
	"venta_en_unidades":       ColVolume,
	"cant._tickets_por_local": ColTickets,
}

// displayNames 规范列名对应的源文件列名（用于缺列提示）
var displayNames = map[string]string{
	ColYear:    "Año",
	ColMonth:   "Mes",
	ColFormat:  "Direccion",
	ColStore:   "Punto Operacional",
	ColSector:  "Sector",
	ColSection: "Seccion",
	ColFamily:  "Grupo de Familia",
	ColSales:   "Ventas c/impuesto",
	ColVolume:  "Venta en Unidades",
	ColTickets: "Cant. Tickets por Local",
}

// FieldMapper 字段映射器
type FieldMapper struct {
	renames map[string]string
}

// NewFieldMapper 创建字段映射器；extra 追加或覆盖重命名规则（源列名 -> 规范列名）
func NewFieldMapper(extra map[string]string) *FieldMapper {
	renames := make(map[string]string, len(defaultRenames)+len(extra))
	for k, v := range defaultRenames {
		renames[k] = v
	}
	for k, v := range extra {
		renames[NormalizeColumnName(k)] = v
	}
	return &FieldMapper{renames: renames}
}

// Map 将表头映射为规范列；同一规范列出现多次时取第一列
func (m *FieldMapper) Map(header []string) map[string]FieldMapping {
	out := make(map[string]FieldMapping)
	for idx, col := range header {
		canonical, ok := m.renames[NormalizeColumnName(col)]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; exists {
			continue
		}
		out[canonical] = FieldMapping{
			ColumnIndex: idx,
			ColumnName:  col,
			Canonical:   canonical,
		}
	}
	return out
}

// Resolve 映射并校验必需列，返回规范列名 -> 列索引
func (m *FieldMapper) Resolve(t *RawTable, required ...string) (map[string]int, error) {
	mapped := m.Map(t.Header)
	var missing []string
	for _, c := range required {
		if _, ok := mapped[c]; !ok {
			name := displayNames[c]
			if name == "" {
				name = c
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ShapeError{Source: t.Source, HeaderRow: t.HeaderRow, Missing: missing}
	}
	cols := make(map[string]int, len(mapped))
	for c, fm := range mapped {
		cols[c] = fm.ColumnIndex
	}
	return cols, nil
}

// RequiredColumns 各类输入文件的必需规范列
func RequiredColumns(kind SourceKind) []string {
	switch kind {
	case SourceSalesVolume:
		return []string{ColYear, ColMonth, ColFormat, ColStore, ColSector, ColSection, ColFamily, ColSales, ColVolume}
	case SourceTickets:
		return []string{ColYear, ColMonth, ColFormat, ColStore, ColTickets}
	}
	return nil
}
