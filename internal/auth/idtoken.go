package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wounsee/forum/internal/model"
)

const (
	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	// jwksCacheTTL は公開鍵セットのキャッシュ有効期間。
	// Googleの鍵ローテーション周期より十分短い値とする。
	jwksCacheTTL = time.Hour
)

// googleIssuers はGoogleが発行するIDトークンのiss値。両形式とも正当。
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// IDTokenVerifier は外部IdPが発行したIDトークンの検証インターフェース。
// 検証成功時のみVerifiedIdentityを返す。部分的に信頼した結果を返してはならない。
type IDTokenVerifier interface {
	// Verify はIDトークンの署名・有効期限・発行者・audienceを検証する。
	// いずれかの検証に失敗した場合はInvalidCredentialエラーを返す。
	Verify(ctx context.Context, rawToken string) (*model.VerifiedIdentity, error)
}

// GoogleIDTokenVerifierConfig はGoogle IDトークン検証の設定。
type GoogleIDTokenVerifierConfig struct {
	// Audience はアプリケーションのOAuthクライアントID。
	// トークンのaud claimと完全一致する必要がある。
	Audience string

	// テスト用にオーバーライド可能なJWKSエンドポイントURL
	JWKSURL string

	// テスト用に注入可能な現在時刻関数
	Now func() time.Time
}

// GoogleIDTokenVerifier はGoogleの公開鍵セット（JWKS）に対してIDトークンを検証する。
// 鍵セットはkid単位でキャッシュし、未知のkidに遭遇した場合は再取得する。
type GoogleIDTokenVerifier struct {
	config GoogleIDTokenVerifierConfig
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewGoogleIDTokenVerifier はGoogleIDTokenVerifierを生成する。
func NewGoogleIDTokenVerifier(config GoogleIDTokenVerifierConfig) *GoogleIDTokenVerifier {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultGoogleJWKSURL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &GoogleIDTokenVerifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   make(map[string]*rsa.PublicKey),
	}
}

// idTokenClaims はGoogle IDトークンのペイロードのうち、このアプリが使用するclaim。
type idTokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify はIDトークンの署名・有効期限・発行者・audienceを検証する。
// 検証順序はライブラリに従い署名が最優先で、署名不正のトークンのclaimは一切参照しない。
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, rawToken string) (*model.VerifiedIdentity, error) {
	claims := &idTokenClaims{}

	_, err := jwt.ParseWithClaims(rawToken, claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("id token has no kid header")
			}
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.config.Now),
	)
	if err != nil {
		slog.Warn("id token verification failed", slog.String("error", err.Error()))
		return nil, model.NewInvalidCredentialError()
	}

	// issuerは2形式のいずれかに一致する必要がある
	issuer, err := claims.GetIssuer()
	if err != nil || !isGoogleIssuer(issuer) {
		slog.Warn("id token has unexpected issuer", slog.String("issuer", issuer))
		return nil, model.NewInvalidCredentialError()
	}

	if claims.Subject == "" || claims.Email == "" {
		slog.Warn("id token is missing required claims")
		return nil, model.NewInvalidCredentialError()
	}

	return &model.VerifiedIdentity{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

// isGoogleIssuer はiss claimがGoogleの発行者のいずれかに一致するかを返す。
func isGoogleIssuer(issuer string) bool {
	for _, iss := range googleIssuers {
		if issuer == iss {
			return true
		}
	}
	return false
}

// key はkidに対応するRSA公開鍵を返す。
// キャッシュが未取得・期限切れ・kid未登録の場合はJWKSエンドポイントから再取得する。
func (v *GoogleIDTokenVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := v.config.Now().Sub(v.fetchedAt) < jwksCacheTTL
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key found for kid %q", kid)
	}
	return key, nil
}

// jwk はJWKSレスポンス内の1つのRSA公開鍵を表す。
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwksResponse はJWKSエンドポイントのレスポンス。
type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

// refreshKeys はJWKSエンドポイントから公開鍵セットを取得してキャッシュを置き換える。
func (v *GoogleIDTokenVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create jwks request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read jwks response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("failed to parse jwks response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			slog.Warn("skipping unparsable jwk", slog.String("kid", k.Kid), slog.String("error", err.Error()))
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return fmt.Errorf("jwks response contained no usable keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.config.Now()
	v.mu.Unlock()

	return nil
}

// parseRSAKey はbase64url形式のmodulus/exponentからRSA公開鍵を構築する。
func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	exponent := 0
	for _, b := range eb {
		exponent = exponent<<8 | int(b)
	}
	if exponent <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: exponent,
	}, nil
}

// compile-time interface check
var _ IDTokenVerifier = (*GoogleIDTokenVerifier)(nil)
