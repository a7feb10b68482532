// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、APIレスポンスには含めない。
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Identity はリクエスト元の認証済みユーザーを表す。
// 未認証リクエストではゼロ値（UserID == 0）となる。
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// Authenticated は認証済みかどうかを返す。
func (i Identity) Authenticated() bool {
	return i.UserID > 0
}
