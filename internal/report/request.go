package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
)

// ErrInvalidRequest 请求参数不合法（月份、报表类型、导出格式等）
var ErrInvalidRequest = errors.New("invalid report request")

// Kind 报表类型
type Kind string

const (
	KindMonthly      Kind = "monthly"      // 当月同比
	KindAccumulated  Kind = "accumulated"  // 年初至今累计同比
	KindComparison   Kind = "comparison"   // 门店 vs 业态合计的月度同比序列
	KindConsolidated Kind = "consolidated" // 连接后的明细导出
)

// Scope 面积口径（仅 consolidated 使用）
type Scope string

const (
	ScopeComparable Scope = "comparable" // 可比面积
	ScopeTotal      Scope = "total"      // 全部面积
)

// Request 一次报表运行的全部参数（替代会话状态）
type Request struct {
	Kind        Kind                 `json:"kind"`
	Month       model.Month          `json:"month"`
	CurrentYear int                  `json:"currentYear,omitempty"` // 0 表示取配置或数据中的最大年份
	Format      model.ArtifactFormat `json:"format"`
	Scope       Scope                `json:"scope,omitempty"`
	Stores      []string             `json:"stores,omitempty"`   // comparison：只保留这些门店
	Category    model.Category       `json:"category,omitempty"` // comparison：只保留该类别
}

// ParseKind 解析报表类型
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMonthly, KindAccumulated, KindComparison, KindConsolidated:
		return k, nil
	case "mmaa", "mensual":
		return KindMonthly, nil
	case "acumulado":
		return KindAccumulated, nil
	case "comparacion":
		return KindComparison, nil
	case "join":
		return KindConsolidated, nil
	}
	return "", fmt.Errorf("%w: unknown report kind %q", ErrInvalidRequest, s)
}

// OptionalColumns 报表类型不需要的交易列
// comparison 只按门店和月份汇总，销售文件可以不带 Sector / Seccion
func OptionalColumns(kind Kind) []string {
	if kind == KindComparison {
		return []string{parser.ColSector, parser.ColSection}
	}
	return nil
}

// ParseScope 解析面积口径，空串视为 comparable
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeComparable, nil
	case ScopeComparable, ScopeTotal:
		return sc, nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidRequest, s)
}

// Validate 校验并补全默认值
func (r *Request) Validate() error {
	kind, err := ParseKind(string(r.Kind))
	if err != nil {
		return err
	}
	r.Kind = kind
	if !r.Month.Valid() {
		return fmt.Errorf("%w: month is required", ErrInvalidRequest)
	}
	format, ok := model.ParseArtifactFormat(string(r.Format))
	if !ok {
		return fmt.Errorf("%w: unknown export format %q", ErrInvalidRequest, r.Format)
	}
	r.Format = format
	scope, err := ParseScope(string(r.Scope))
	if err != nil {
		return err
	}
	r.Scope = scope
	if r.Category != "" {
		if _, ok := model.ParseCategory(string(r.Category)); !ok {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, r.Category)
		}
	}
	if r.CurrentYear < 0 {
		return fmt.Errorf("%w: invalid year %d", ErrInvalidRequest, r.CurrentYear)
	}
	return nil
}
