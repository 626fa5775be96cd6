package auth

import "crypto/subtle"

// CredentialVerifier は資格情報の検証のインターフェースを定義する。
type CredentialVerifier interface {
	// Verify はメールアドレスとパスワードの組を検証する。
	// 一致した場合はユーザーIDとtrueを、一致しない場合は空文字列とfalseを返す。
	Verify(email, password string) (string, bool)
}

// FixedCredentialVerifier は設定で与えられた単一の資格情報と照合する
// CredentialVerifierの実装。ポータルの唯一の顧客アカウントを表す。
type FixedCredentialVerifier struct {
	userID   string
	email    string
	password string
}

// コンパイル時のインターフェース実装チェック
var _ CredentialVerifier = (*FixedCredentialVerifier)(nil)

// NewFixedCredentialVerifier はFixedCredentialVerifierを生成する。
func NewFixedCredentialVerifier(userID, email, password string) *FixedCredentialVerifier {
	return &FixedCredentialVerifier{
		userID:   userID,
		email:    email,
		password: password,
	}
}

// Verify はメールアドレスとパスワードの組を検証する。
// タイミング攻撃を避けるため、両フィールドを定数時間で比較し、
// どちらが不一致だったかを応答時間から区別できないようにする。
func (v *FixedCredentialVerifier) Verify(email, password string) (string, bool) {
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(v.email))
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(v.password))

	if emailMatch&passwordMatch != 1 {
		return "", false
	}
	return v.userID, true
}
