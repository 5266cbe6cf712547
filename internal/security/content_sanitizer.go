// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー投稿の軽量マークアップを描画用HTMLに変換し、
// XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。許可リスト方式は未知の攻撃ベクトルに
// 対しても安全側に縮退するため、拒否リスト方式は採用しない。
package security

import (
	"bytes"
	"html"
	"log/slog"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// httpsURLPattern は画像srcに許可する絶対httpsのURLパターン。
var httpsURLPattern = regexp.MustCompile(`^https://`)

// ContentSanitizerService はユーザー投稿マークアップのサニタイズ機能のインターフェースを定義する。
// 投稿・コメントの保存前に使用され、この出力のみが永続化される。
type ContentSanitizerService interface {
	// Render はマークアップを安全なHTMLフラグメントに変換する。
	// 全域関数であり、不正な入力でも失敗しない。マークダウン変換に失敗した場合は
	// エスケープ済みリテラルテキストに縮退する。
	// scriptタグ、on*イベント属性、javascript:スキームのリンクは常に除去される。
	// 出力済みHTMLを再度この関数のマークアップ入力として渡してはならない。
	Render(rawMarkup string) string
}

// FallbackRecorder はマークダウン変換の縮退発生を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type FallbackRecorder interface {
	RecordSanitizerFallback()
}

// contentSanitizer はContentSanitizerServiceの実装。
// goldmarkのレンダラとbluemondayのポリシーを保持し、スレッドセーフに処理を行う。
type contentSanitizer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	recorder FallbackRecorder
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// recorderには縮退発生を記録するコレクタを渡す。nilの場合は記録しない。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img,
//     h1〜h6, hr（マークダウンの出力に対応）
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグのhref属性: http/httpsスキームのみ許可（javascript:等は除去）
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//   - imgのsrc属性: httpsスキームのみ許可
func NewContentSanitizer(recorder FallbackRecorder) *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// scriptやiframe等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"h1", "h2", "h3", "h4", "h5", "h6", "hr",
	)

	// aタグの設定:
	// - href属性を許可し、スキームはhttp/httpsに限定
	// - target="_blank"とrel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// imgタグの設定:
	// - src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）
	//   URLスキーム許可はポリシー全体に効くため、imgのみの制約はsrc属性の
	//   パターンマッチで課す
	// - alt属性を許可（アクセシビリティ確保）
	p.AllowAttrs("src").Matching(httpsURLPattern).OnElements("img")
	p.AllowAttrs("alt").OnElements("img")

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	return &contentSanitizer{
		markdown: md,
		policy:   p,
		recorder: recorder,
	}
}

// Render はマークアップを安全なHTMLフラグメントに変換する。
func (s *contentSanitizer) Render(rawMarkup string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(rawMarkup), &buf); err != nil {
		// マークダウン変換の失敗はエラーとして伝播させず、
		// エスケープ済みリテラルテキストに縮退する
		slog.Warn("markdown conversion degraded to literal text",
			slog.String("error", err.Error()),
		)
		if s.recorder != nil {
			s.recorder.RecordSanitizerFallback()
		}
		return "<p>" + html.EscapeString(rawMarkup) + "</p>"
	}

	return s.policy.Sanitize(buf.String())
}
