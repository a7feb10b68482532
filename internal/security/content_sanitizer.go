// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが投稿したレシピのテキスト（タイトル、説明、材料、手順）から
// HTMLを取り除く。bluemondayのStrictPolicyを使い、タグはすべて除去し、
// 残ったテキストはHTMLエスケープされた状態で返す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は前後の空白を除去し、HTMLタグを取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemonday.Policyはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は前後の空白を除去し、HTMLタグを取り除いたテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(trimmed))
}

// SanitizeAll はスライスの各要素をサニタイズし、空になった要素を除いて返す。
func SanitizeAll(s TextSanitizer, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := s.Sanitize(v); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
