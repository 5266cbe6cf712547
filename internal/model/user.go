// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限レベルを表す。
type Role string

const (
	// RoleUser は一般ユーザー。投稿・コメントの作成が可能。
	RoleUser Role = "user"
	// RoleAdmin は管理者。カテゴリ管理とコンテンツのモデレーションが可能。
	RoleAdmin Role = "admin"
)

// IsValid はロールが定義済みの値かどうかを返す。
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User はフォーラムの利用ユーザーを表す。
// ProviderSubjectは外部IdPのsubject識別子。ローカルアカウントではnullになり得るため、
// emailが安定した結合キーとなる。
type User struct {
	ID              string
	ProviderSubject string // 外部IdPのsub。空文字列は未紐付けを表す
	Email           string
	Name            string
	AvatarURL       string
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VerifiedIdentity は外部IdPの署名検証を通過したIDトークンのペイロードを表す。
// 検証前のトークンから生成してはならない。
type VerifiedIdentity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}
