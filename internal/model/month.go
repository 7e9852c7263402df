package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Month 月份（西语月名枚举，与门店登记表列名保持兼容）
type Month int

const (
	Enero Month = iota + 1
	Febrero
	Marzo
	Abril
	Mayo
	Junio
	Julio
	Agosto
	Septiembre
	Octubre
	Noviembre
	Diciembre
)

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// AllMonths 全部月份（按自然顺序）
func AllMonths() []Month {
	out := make([]Month, 0, len(monthNames))
	for i := range monthNames {
		out = append(out, Month(i+1))
	}
	return out
}

// ParseMonth 解析月名（忽略大小写与首尾空格）
// 接受 "Agosto" / "agosto" / "Agosto 2025"（取第一个词），以及序号 "8" / "08"
func ParseMonth(s string) (Month, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty month name")
	}
	if n, err := strconv.Atoi(fields[0]); err == nil {
		return MonthFromOrdinal(n)
	}
	name := strings.ToLower(fields[0])
	for i, n := range monthNames {
		if strings.ToLower(n) == name {
			return Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown month name %q", s)
}

// MonthFromOrdinal 由序号 (1-12) 得到月份
func MonthFromOrdinal(n int) (Month, error) {
	if n < 1 || n > 12 {
		return 0, fmt.Errorf("month ordinal out of range: %d", n)
	}
	return Month(n), nil
}

// Valid 是否为合法月份
func (m Month) Valid() bool {
	return m >= Enero && m <= Diciembre
}

// String 西语月名
func (m Month) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return monthNames[m-1]
}

// Ordinal 月份序号 1-12
func (m Month) Ordinal() int {
	return int(m)
}

// Key 三字母小写键，例如 "ago"
func (m Month) Key() string {
	if !m.Valid() {
		return ""
	}
	return strings.ToLower(monthNames[m-1][:3])
}

// RegistryColumn 登记表中的月份列名，例如 "AGO"
func (m Month) RegistryColumn() string {
	return strings.ToUpper(m.Key())
}

// MarshalText 以月名序列化
func (m Month) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid month %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText 从月名反序列化
func (m *Month) UnmarshalText(b []byte) error {
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
