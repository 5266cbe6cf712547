package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wounsee/forum/internal/model"
)

// SessionManager はローカルスコープのセッショントークンの発行と検証を行う。
// トークンはHS256署名付きJWTで、ユーザーIDと絶対有効期限のみを持つ。
// 署名鍵はプロセス全体の設定として起動時に1回読み込む。鍵のローテーションは
// 発行済みの全セッションを無効化する（失効リストは保持しない設計）。
type SessionManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionManager はSessionManagerを生成する。
// nowにはテスト用に現在時刻関数を注入できる。nilの場合はtime.Nowを使用する。
func NewSessionManager(secret string, maxAge time.Duration, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    now,
	}
}

// Issue は指定ユーザーのセッショントークンを発行する。
// 有効期限は発行時刻からmaxAge（ポリシー: 7日間）の絶対時刻。
func (m *SessionManager) Issue(userID string) (string, error) {
	now := m.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Validate はセッショントークンを検証し、ユーザーIDを返す。
// 検証順序: (a) 署名（不正・改ざんはUnauthenticated）、(b) 有効期限（超過はSessionExpired）。
// ユーザーの存在確認は呼び出し側（Service）が行う。
func (m *SessionManager) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		// 署名不正のトークンはライブラリがclaim検証前に弾くため、
		// 期限切れエラーは署名が正当なトークンに対してのみ返る。
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.NewSessionExpiredError()
		}
		slog.Warn("session token validation failed", slog.String("error", err.Error()))
		return "", model.NewUnauthenticatedError()
	}

	if claims.Subject == "" {
		return "", model.NewUnauthenticatedError()
	}

	return claims.Subject, nil
}
