package exporter

import (
	"strings"
)

const (
	fileNamePrefix     = "generated-image-"
	fileNameExt        = ".png"
	maxPromptPrefixLen = 20
)

// FileName はプロンプトから保存ファイル名を決定的に作ります。
// 先頭 20 文字を小文字にし、英数字以外を "_" に置き換えます。
func FileName(prompt string) string {
	return fileName(prompt, fileNameExt)
}

// fileName は拡張子 ext を付けたファイル名を返します。ext が空なら .png です。
func fileName(prompt, ext string) string {
	if ext == "" {
		ext = fileNameExt
	}
	var b strings.Builder
	n := 0
	for _, r := range prompt {
		if n == maxPromptPrefixLen {
			break
		}
		n++
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return fileNamePrefix + b.String() + ext
}
