package model

import "time"

// QuoteStatus は見積のライフサイクル状態を表す。
// 定義される遷移は PendingApproval → Approved のみで、Approvedが終端状態。
type QuoteStatus string

const (
	// QuoteStatusPendingApproval は承認待ち状態。見積作成時の初期状態。
	QuoteStatusPendingApproval QuoteStatus = "Pending Approval"
	// QuoteStatusApproved は承認済み状態（終端）。
	QuoteStatusApproved QuoteStatus = "Approved"
)

// QuoteLine は見積の明細1行を表す。
type QuoteLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Quote は見積を表す。
// statusとfinal_priceの書き込みは見積ワークフローのみが行う。
type Quote struct {
	ID                string
	IngramQuoteNumber string // 上流で採番された見積番号
	UserID            string
	Products          []QuoteLine // 順序を保持した明細リスト
	ShippingInfo      string
	TaxInfo           string
	Status            QuoteStatus
	FinalPrice        string // 未確定の場合はセンチネル値 "TBD"
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QuoteRef は上流の見積作成レスポンスへの参照を表す。
type QuoteRef struct {
	QuoteNumber string
}
