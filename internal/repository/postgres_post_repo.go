package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wounsee/forum/internal/model"
)

// defaultPostListLimit はlimit未指定時の投稿一覧件数。
const defaultPostListLimit = 20

// maxPostListLimit は投稿一覧の最大件数。
const maxPostListLimit = 100

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postMetaSelect = `
	SELECT p.id, p.title, p.content, p.category_id, p.author_id,
	       p.attachment_path, p.created_at, p.updated_at,
	       u.name AS author_name, c.name AS category_name,
	       (SELECT count(*) FROM comments cm WHERE cm.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN categories c ON c.id = p.category_id`

// FindByID は指定IDの投稿をメタ情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.PostWithMeta, error) {
	p := &model.PostWithMeta{}
	err := r.db.QueryRowContext(ctx,
		postMetaSelect+` WHERE p.id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Content, &p.CategoryID, &p.AuthorID,
		&p.AttachmentPath, &p.CreatedAt, &p.UpdatedAt,
		&p.AuthorName, &p.CategoryName, &p.CommentCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return p, nil
}

// List は投稿一覧をメタ情報付きで返す。
// sortが不正な場合はnewestとして扱う。limitが0以下の場合は既定値を使用する。
func (r *PostgresPostRepo) List(ctx context.Context, sort model.PostSort, limit int) ([]model.PostWithMeta, error) {
	if limit <= 0 {
		limit = defaultPostListLimit
	}
	if limit > maxPostListLimit {
		limit = maxPostListLimit
	}

	var orderBy string
	switch sort {
	case model.PostSortOldest:
		orderBy = "p.created_at ASC"
	case model.PostSortPopular:
		orderBy = "comment_count DESC, p.created_at DESC"
	default:
		orderBy = "p.created_at DESC"
	}

	rows, err := r.db.QueryContext(ctx,
		postMetaSelect+` ORDER BY `+orderBy+` LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithMeta
	for rows.Next() {
		var p model.PostWithMeta
		err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CategoryID, &p.AuthorID,
			&p.AttachmentPath, &p.CreatedAt, &p.UpdatedAt,
			&p.AuthorName, &p.CategoryName, &p.CommentCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// Create は投稿を作成する。contentはサニタイズ済みHTMLであること。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, category_id, author_id, attachment_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Title, post.Content, post.CategoryID, post.AuthorID,
		post.AttachmentPath, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Delete は指定IDの投稿を削除する。関連コメントはCASCADE削除される。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPostNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
