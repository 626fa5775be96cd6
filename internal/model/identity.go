package model

import "time"

// Identity は認証済み呼び出し元を表す。
// セッショントークンの検証結果から再構築され、永続化はしない。
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}
