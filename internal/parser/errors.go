package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileShape 文件结构不符（表头偏移错误或缺少列）
	ErrFileShape = errors.New("file shape mismatch")
	// ErrCoercion 数值/编号转换失败
	ErrCoercion = errors.New("value coercion failed")
	// ErrSchemaDrift 登记表缺少所选月份的标记列
	ErrSchemaDrift = errors.New("registry schema drift")
)

// ShapeError 缺列错误
type ShapeError struct {
	Source    string
	HeaderRow int
	Missing   []string
	Hint      string
}

func (e *ShapeError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (header row %d)", e.Source, e.Hint, e.HeaderRow)
	}
	return fmt.Sprintf("%s: header row %d is missing columns [%s]",
		e.Source, e.HeaderRow, strings.Join(e.Missing, ", "))
}

func (e *ShapeError) Unwrap() error { return ErrFileShape }

// CoercionError 单元格转换错误
type CoercionError struct {
	Source string
	Row    int // 文件中的行号（1 起）
	Column string
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("%s: row %d column %q: cannot convert %q", e.Source, e.Row, e.Column, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }
