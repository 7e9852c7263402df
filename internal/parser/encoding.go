package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// 支持的编码名称
const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf-8"
	EncodingUTF16   = "utf-16"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingLatin1  = "latin1"
)

// DetectEncoding 根据 BOM 与字节分布推断文本编码
// 系统导出的 POS 报表为带 BOM 的 UTF-16，手工另存的文件常为 UTF-8 或 Windows-1252
func DetectEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return EncodingUTF16
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8
	}

	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	var evenZeros, oddZeros int
	for i, b := range sample {
		if b != 0 {
			continue
		}
		if i%2 == 0 {
			evenZeros++
		} else {
			oddZeros++
		}
	}
	half := len(sample) / 4
	if half > 0 {
		if oddZeros > half && evenZeros < oddZeros/4 {
			return EncodingUTF16LE
		}
		if evenZeros > half && oddZeros < evenZeros/4 {
			return EncodingUTF16BE
		}
	}

	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingLatin1
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EncodingUTF8, "utf8":
		return unicode.UTF8BOM, nil
	case EncodingUTF16, "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case EncodingLatin1, "windows-1252", "cp1252", "iso-8859-1":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// DecodeText 将原始字节解码为 UTF-8 文本；name 为空或 auto 时自动识别
func DecodeText(data []byte, name string) (string, string, error) {
	if name == "" || strings.EqualFold(name, EncodingAuto) {
		name = DetectEncoding(data)
	}
	enc, err := decoderFor(name)
	if err != nil {
		return "", name, err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", name, fmt.Errorf("decode %s: %w", name, err)
	}
	// UTF-16 BOM 在 IgnoreBOM 模式下会被保留为 U+FEFF
	return strings.TrimPrefix(string(out), "\ufeff"), name, nil
}
