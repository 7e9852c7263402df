package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmpty = errors.New("empty value")

// IsBlank 单元格是否视为缺失（空串或常见 NA 记号）
func IsBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "nan", "NA", "N/A", "#N/A", "None", "null":
		return true
	}
	return false
}

// ParseSales 解析含税销售额："1.234,56" -> 1234.56
// 去掉千分位 "."，小数点 "," 替换为 "."
func ParseSales(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if IsBlank(s) {
		return 0, errEmpty
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseVolume 解析销量：只取 "," 前的整数部分（有意截断），"1.234,0" -> 1234
func ParseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if IsBlank(s) {
		return 0, errEmpty
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ".", "")
	return strconv.ParseInt(s, 10, 64)
}

// ParseTickets 解析小票数："12.345" -> 12345
func ParseTickets(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if IsBlank(s) {
		return 0, errEmpty
	}
	s = strings.ReplaceAll(s, ".", "")
	return strconv.ParseInt(s, 10, 64)
}

// ParseStoreID 从 "123 - NOMBRE" 中取门店编号
func ParseStoreID(label string) (int, error) {
	head, _, _ := strings.Cut(label, "-")
	head = strings.TrimSpace(head)
	if head == "" {
		return 0, errEmpty
	}
	return strconv.Atoi(head)
}

// ParseWholeNumber 解析整数单元格（兼容 "123"、"123.0" 与千分位 ","）
func ParseWholeNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if IsBlank(s) {
		return 0, errEmpty
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errors.New("not an integer")
	}
	return int(d.IntPart()), nil
}
