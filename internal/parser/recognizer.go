package parser

import "strings"

// SourceRecognition 输入文件类型识别结果
type SourceRecognition struct {
	Kind       SourceKind `json:"kind"`
	Confidence float64    `json:"confidence"` // 0-1
}

// sourceKeyFields 各类文件的关键列（规范化列名，"|" 分隔同义列）
var sourceKeyFields = map[SourceKind][]string{
	SourceSalesVolume: {
		"año|ano", "mes", "punto_operacional", "sector", "seccion|sección",
		"grupo_de_familia", "ventas_c/impuesto", "venta_en_unidades",
	},
	SourceTickets: {
		"año|ano", "mes", "punto_operacional", "cant._tickets_por_local",
	},
	SourceRegistry: {
		"n°|gsx", "nombre", "fecha_apertura", "provincia", "organización|organizacion",
	},
}

// RecognizeSource 按表头识别文件类型；无法识别时 Confidence 为 0
func RecognizeSource(header []string) SourceRecognition {
	normalized := make([]string, len(header))
	for i, col := range header {
		normalized[i] = NormalizeColumnName(col)
	}

	best := SourceRecognition{}
	for _, kind := range []SourceKind{SourceSalesVolume, SourceTickets, SourceRegistry} {
		fields := sourceKeyFields[kind]
		matchCount := 0
		for _, field := range fields {
			for _, col := range normalized {
				if matchAlternative(col, field) {
					matchCount++
					break
				}
			}
		}
		confidence := float64(matchCount) / float64(len(fields))
		if confidence > best.Confidence {
			best = SourceRecognition{Kind: kind, Confidence: confidence}
		}
	}
	return best
}

// CheckSource 表头明显属于另一类文件时返回 ShapeError（例如上传时把 ventas 与 debitos 放反）
func CheckSource(t *RawTable, want SourceKind) error {
	got := RecognizeSource(t.Header)
	if got.Kind == want || got.Confidence < 0.75 {
		return nil
	}
	if want == SourceTickets && got.Kind == SourceSalesVolume {
		// 销售文件不含小票列时才算放错
		for _, col := range t.Header {
			if NormalizeColumnName(col) == "cant._tickets_por_local" {
				return nil
			}
		}
	}
	return &ShapeError{
		Source:    t.Source,
		HeaderRow: t.HeaderRow,
		Hint:      "looks like a " + string(got.Kind) + " export",
	}
}

func matchAlternative(col, pattern string) bool {
	for _, alt := range strings.Split(pattern, "|") {
		if col == alt {
			return true
		}
	}
	return false
}
