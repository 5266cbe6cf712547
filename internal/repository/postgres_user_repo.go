package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wounsee/forum/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, COALESCE(provider_subject, ''), email, name, avatar_url, role, created_at, updated_at`

// scanUser は1行をmodel.Userに読み込む。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.ProviderSubject, &user.Email, &user.Name,
		&user.AvatarURL, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// Upsert は検証済みidentityからローカルユーザーを作成または更新する。
// 検索はprovider subject優先、次にemail。既存ユーザーはname/avatar_urlのみ更新し、
// id/role/emailは決して上書きしない。全体を1トランザクションで実行するため、
// リクエストのキャンセル時に部分的な書き込みは残らない。
func (r *PostgresUserRepo) Upsert(ctx context.Context, identity *model.VerifiedIdentity, initialRole model.Role) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// 1. provider subjectで検索
	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_subject = $1`,
		identity.Subject,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider subject: %w", err)
	}

	// 2. 見つからない場合はemailで検索（再紐付け: provider_subjectを設定する）
	if user == nil {
		user, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			identity.Email,
		))
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			user.ProviderSubject = identity.Subject
		}
	}

	if user != nil {
		// 既存ユーザー: name/avatar_url（とemail一致時のprovider_subject）のみ更新
		user.Name = identity.Name
		user.AvatarURL = identity.AvatarURL
		user.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET provider_subject = NULLIF($1, ''), name = $2, avatar_url = $3, updated_at = $4
			 WHERE id = $5`,
			user.ProviderSubject, user.Name, user.AvatarURL, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	} else {
		// 新規ユーザー: initialRoleで作成
		user = &model.User{
			ID:              uuid.New().String(),
			ProviderSubject: identity.Subject,
			Email:           identity.Email,
			Name:            identity.Name,
			AvatarURL:       identity.AvatarURL,
			Role:            initialRole,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, provider_subject, email, name, avatar_url, role, created_at, updated_at)
			 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`,
			user.ID, user.ProviderSubject, user.Email, user.Name,
			user.AvatarURL, user.Role, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// List は全ユーザーを作成日時の降順で返す。管理画面用。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		err := rows.Scan(
			&user.ID, &user.ProviderSubject, &user.Email, &user.Name,
			&user.AvatarURL, &user.Role, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
