// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/wounsee/forum/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// ログインフローからのidentityデータ書き込みはUpsertのみを経由する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Upsert は検証済みidentityからローカルユーザーを作成または更新する。
	// 検索順序: provider subject → email（email-onlyアカウントの再紐付けを許容）。
	// 既存ユーザーはname/avatar_urlのみ更新し、id/role/emailは決して上書きしない。
	// 新規ユーザーはinitialRoleで作成する。全体を1トランザクションで実行する。
	Upsert(ctx context.Context, identity *model.VerifiedIdentity, initialRole model.Role) (*model.User, error)

	// List は全ユーザーを作成日時の降順で返す。管理画面用。
	List(ctx context.Context) ([]*model.User, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// ListWithCounts は全カテゴリを投稿数付きで返す。
	ListWithCounts(ctx context.Context) ([]model.CategoryWithCount, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリのname/description/iconを更新する。
	Update(ctx context.Context, category *model.Category) error

	// Delete は指定IDのカテゴリを削除する。存在しない場合はエラーを返す。
	Delete(ctx context.Context, id string) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を投稿者名・カテゴリ名・コメント数付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PostWithMeta, error)

	// List は投稿一覧をメタ情報付きで返す。
	// sortでソート順を指定し、limitで件数を制限する（0以下は既定値）。
	List(ctx context.Context, sort model.PostSort, limit int) ([]model.PostWithMeta, error)

	// Create は投稿を作成する。contentはサニタイズ済みHTMLであること。
	Create(ctx context.Context, post *model.Post) error

	// Delete は指定IDの投稿を削除する。関連コメントはCASCADE削除される。
	// 存在しない場合はエラーを返す。
	Delete(ctx context.Context, id string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// ListByPost は指定投稿のコメント一覧を投稿者名付きで作成日時の昇順で返す。
	ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)

	// Create はコメントを作成する。contentはサニタイズ済みHTMLであること。
	Create(ctx context.Context, comment *model.Comment) error

	// Delete は指定IDのコメントを削除する。存在しない場合はエラーを返す。
	Delete(ctx context.Context, id string) error
}
