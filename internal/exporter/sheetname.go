package exporter

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength Excel 工作表名的最大字符数
const MaxSheetNameLength = 31

// maxSuffixLength 名称末尾 " - XX" 形式的后缀最多保留的字符数
const maxSuffixLength = 6

const fallbackSheetName = "Hoja"

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", "\\", "-",
)

// SanitizeSheetName 替换 Excel 不允许的字符并截断到 31 个字符；
// 截断的是描述部分，" - SC" 这类后缀保持不变
func SanitizeSheetName(name string) string {
	name = strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(name)), "'")
	if name == "" {
		name = fallbackSheetName
	}
	label, suffix := splitSuffix(name)
	return fitName(label, "", suffix)
}

// UniqueSheetNames 清洗全部名称，冲突时（不区分大小写）在后缀前追加序号
func UniqueSheetNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, raw := range names {
		name := SanitizeSheetName(raw)
		label, suffix := splitSuffix(name)
		for n := 2; seen[strings.ToLower(name)]; n++ {
			name = fitName(label, " "+strconv.Itoa(n), suffix)
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func splitSuffix(name string) (string, string) {
	idx := strings.LastIndex(name, " - ")
	if idx <= 0 {
		return name, ""
	}
	suffix := name[idx:]
	if utf8.RuneCountInString(suffix) > maxSuffixLength {
		return name, ""
	}
	return name[:idx], suffix
}

func fitName(label, counter, suffix string) string {
	room := MaxSheetNameLength - utf8.RuneCountInString(counter) - utf8.RuneCountInString(suffix)
	if r := []rune(label); len(r) > room {
		label = strings.TrimRight(string(r[:room]), " ")
	}
	return label + counter + suffix
}
