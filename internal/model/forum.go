package model

import "time"

// Category は投稿の分類カテゴリを表す。作成・編集は管理者のみ。
type Category struct {
	ID          string
	Name        string
	Description string
	Icon        string
	CreatedBy   string
	CreatedAt   time.Time
}

// CategoryWithCount はカテゴリと所属する投稿数を結合した構造体。
type CategoryWithCount struct {
	Category
	PostCount int
}

// Post はフォーラムの投稿を表す。
// Contentには常にサニタイズ済みHTMLのみを格納する。投稿時の生マークアップは保持しない。
type Post struct {
	ID             string
	Title          string
	Content        string // サニタイズ済みHTML
	CategoryID     string
	AuthorID       string
	AttachmentPath string // 添付ファイルの保存パス。空文字列は添付なし
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostWithMeta は投稿と一覧表示用のメタ情報を結合した構造体。
type PostWithMeta struct {
	Post
	AuthorName   string
	CategoryName string
	CommentCount int
}

// PostSort は投稿一覧のソート順を表す。
type PostSort string

const (
	// PostSortNewest は作成日時の降順。デフォルト。
	PostSortNewest PostSort = "newest"
	// PostSortOldest は作成日時の昇順。
	PostSortOldest PostSort = "oldest"
	// PostSortPopular はコメント数の降順。
	PostSortPopular PostSort = "popular"
)

// IsValid はソート順が定義済みの値かどうかを返す。
func (s PostSort) IsValid() bool {
	return s == PostSortNewest || s == PostSortOldest || s == PostSortPopular
}

// Comment は投稿へのコメントを表す。投稿の削除時にCASCADE削除される。
// Contentには常にサニタイズ済みHTMLのみを格納する。
type Comment struct {
	ID        string
	Content   string // サニタイズ済みHTML
	PostID    string
	AuthorID  string
	CreatedAt time.Time
}

// CommentWithAuthor はコメントと投稿者名を結合した構造体。
type CommentWithAuthor struct {
	Comment
	AuthorName string
}
