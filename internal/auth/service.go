// Package auth は外部IdPのIDトークン検証、ローカルセッションの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wounsee/forum/internal/model"
	"github.com/wounsee/forum/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
// ログインフロー（IDトークン検証→ユーザーUPSERT→セッション発行）と、
// セッショントークンからのユーザー解決を担当する。
type Service struct {
	verifier    IDTokenVerifier
	sessions    *SessionManager
	users       repository.UserRepository
	adminEmails map[string]struct{}
}

// NewService はServiceを生成する。
// adminEmailsに含まれるメールアドレスのユーザーは、ユーザーレコードの
// 初回作成時のみadminロールを付与される。既存ユーザーのロールは変更しない。
func NewService(
	verifier IDTokenVerifier,
	sessions *SessionManager,
	users repository.UserRepository,
	adminEmails []string,
) *Service {
	emails := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		emails[e] = struct{}{}
	}
	return &Service{
		verifier:    verifier,
		sessions:    sessions,
		users:       users,
		adminEmails: emails,
	}
}

// Login は外部IDトークンを検証し、ローカルユーザーをUPSERTしてセッションを発行する。
// ロールはIdPのclaimからは決して導出しない。初期ロールの昇格は
// adminEmails設定によるユーザー作成時の1回のみ。
func (s *Service) Login(ctx context.Context, externalToken string) (string, *model.User, error) {
	// 1. IDトークンの検証
	identity, err := s.verifier.Verify(ctx, externalToken)
	if err != nil {
		return "", nil, err
	}

	// 2. ローカルユーザーのUPSERT（作成時のみ初期ロールが適用される）
	initialRole := model.RoleUser
	if _, ok := s.adminEmails[identity.Email]; ok {
		initialRole = model.RoleAdmin
	}

	user, err := s.users.Upsert(ctx, identity, initialRole)
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// 3. セッションの発行
	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return token, user, nil
}

// GetUserBySession はセッショントークンを検証し、現在のユーザーを返す。
// トークンが正当でもユーザーが削除済みの場合はUserNotFoundを返す
// （アカウントの帯域外削除を許容する）。
func (s *Service) GetUserBySession(ctx context.Context, tokenString string) (*model.User, error) {
	userID, err := s.sessions.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}
