package parser

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名：去首尾空格、小写、空白替换为 "_"
// "Ventas c/impuesto" -> "ventas_c/impuesto"
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ToLower(name)
	return spaceRe.ReplaceAllString(name, "_")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// CleanLabel 清理文本单元格（去首尾空格，NA 记号视为空）
func CleanLabel(s string) string {
	if IsBlank(s) {
		return ""
	}
	return strings.TrimSpace(s)
}
