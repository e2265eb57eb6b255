// Package pantry 提供食材標籤正規化、可烹飪性評估與食譜排序
package pantry

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize 正規化食材或庫存名稱，作為唯一的比對鍵
//
// 轉小寫、移除字元（保留文字字元、空白與連字號）、合併連續空白並去除首尾空白。
// 文字字元包含所有 Unicode 字母、數字與組合記號，中文或帶重音的名稱不會被清成空字串。
// 前後各做一次 NFKC，確保全形字與組合字元的結果穩定。
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isWordRune(r), r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return norm.NFKC.String(strings.Join(strings.Fields(b.String()), " "))
}

// isWordRune 文字字元：字母、數字、組合記號與底線
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
