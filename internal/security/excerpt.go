package security

import (
	"strings"

	"golang.org/x/net/html"
)

// excerptMaxRunes は一覧表示用の抜粋の最大文字数。
const excerptMaxRunes = 200

// Excerpt はサニタイズ済みHTMLからタグを除去し、一覧表示用の抜粋テキストを返す。
// 200文字を超える場合は切り詰めて省略記号を付与する。
// パースに失敗した断片は無視し、収集済みのテキストのみを返す。
func Excerpt(sanitizedHTML string) string {
	var sb strings.Builder

	tokenizer := html.NewTokenizer(strings.NewReader(sanitizedHTML))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			text := strings.TrimSpace(tokenizer.Token().Data)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}

	runes := []rune(sb.String())
	if len(runes) <= excerptMaxRunes {
		return string(runes)
	}
	return string(runes[:excerptMaxRunes]) + "…"
}
