// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, quote, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUpstreamAuthError   = "UPSTREAM_AUTH_ERROR"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeQuoteNotFound       = "QUOTE_NOT_FOUND"
	ErrCodePersistenceError    = "PERSISTENCE_ERROR"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidQuoteLines   = "INVALID_QUOTE_LINES"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// セッショントークンの欠落・不正・期限切れはすべてこのエラーに集約する（fail closed）。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewUpstreamAuthError はディストリビューターAPIの認証失敗エラーを生成する。
func NewUpstreamAuthError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamAuthError,
		Message:  fmt.Sprintf("ディストリビューターAPIの認証に失敗しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamUnavailableError はディストリビューターAPIの呼び出し失敗エラーを生成する。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("ディストリビューターAPIの呼び出しに失敗しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewQuoteNotFoundError は見積未検出エラーを生成する。
func NewQuoteNotFoundError(quoteID string) *APIError {
	return &APIError{
		Code:     ErrCodeQuoteNotFound,
		Message:  fmt.Sprintf("指定された見積が見つかりません: %s", quoteID),
		Category: "quote",
		Action:   "見積IDを確認してください。",
	}
}

// NewPersistenceError は永続化失敗エラーを生成する。
func NewPersistenceError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePersistenceError,
		Message:  fmt.Sprintf("データの保存または読み取りに失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidQuoteLinesError は見積明細が不正な場合のエラーを生成する。
func NewInvalidQuoteLinesError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuoteLines,
		Message:  fmt.Sprintf("見積明細が不正です: %s", reason),
		Category: "validation",
		Action:   "SKUと数量（1以上）を指定した明細を1件以上含めてください。",
	}
}
