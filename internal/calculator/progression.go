package calculator

import (
	"fmt"
	"math"
	"strings"

	"github.com/juanifmera/progresion/internal/model"
)

// UndefinedPolicy 同比无定义（缺少年份或上年为 0）时的统一处理策略
type UndefinedPolicy string

const (
	PolicyBlank UndefinedPolicy = "blank" // 输出空单元格（默认）
	PolicyZero  UndefinedPolicy = "zero"  // 输出 0
	PolicyIEEE  UndefinedPolicy = "ieee"  // 保留 inf / -inf / NaN
)

// ParsePolicy 解析策略名，空串视为 blank
func ParsePolicy(s string) (UndefinedPolicy, error) {
	switch p := UndefinedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyBlank, nil
	case PolicyBlank, PolicyZero, PolicyIEEE:
		return p, nil
	}
	return "", fmt.Errorf("unknown undefined progression policy %q", s)
}

// Round1 保留 1 位小数，与 numpy.round 一致（缩放后银行家舍入）
func Round1(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.RoundToEven(x*10) / 10
}

// Progression 同比：round((current/prior - 1) * 100, 1)
// 任一年份缺失时返回无效单元格；上年为 0 时按 IEEE 语义得到 ±inf 或 NaN
func Progression(prior, current model.Cell) model.Cell {
	if !prior.Valid || !current.Valid {
		return model.NullCell()
	}
	return model.NewCell(Round1((current.Value/prior.Value - 1) * 100))
}

// Defined 同比是否有定义（有效且为有限数）
func Defined(c model.Cell) bool {
	return c.Finite()
}

// ApplyPolicy 按策略处理无定义的同比
func ApplyPolicy(c model.Cell, policy UndefinedPolicy) model.Cell {
	if Defined(c) {
		return c
	}
	switch policy {
	case PolicyZero:
		return model.NewCell(0)
	case PolicyIEEE:
		if !c.Valid {
			return model.NewCell(math.NaN())
		}
		return c
	default:
		return model.NullCell()
	}
}
