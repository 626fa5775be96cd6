package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/middleware"
	"github.com/vcron/portal/internal/model"
	"github.com/vcron/portal/internal/quote"
)

// QuoteServiceInterface は見積ハンドラーが必要とするサービスインターフェース。
type QuoteServiceInterface interface {
	Create(ctx context.Context, input quote.CreateInput) (*model.Quote, error)
	Approve(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error)
	Get(ctx context.Context, id string) (*model.Quote, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Quote, error)
}

// QuoteHandler は見積ワークフローのHTTPハンドラー。
type QuoteHandler struct {
	service   QuoteServiceInterface
	collector metrics.MetricsCollector
}

// NewQuoteHandler はQuoteHandlerを生成する。
func NewQuoteHandler(service QuoteServiceInterface, collector metrics.MetricsCollector) *QuoteHandler {
	return &QuoteHandler{
		service:   service,
		collector: collector,
	}
}

// createQuoteRequest は見積作成リクエストのボディ。
type createQuoteRequest struct {
	Products     []model.QuoteLine `json:"products"`
	ShippingInfo string            `json:"shippingInfo"`
	TaxInfo      string            `json:"taxInfo"`
}

// createQuoteResponse は見積作成成功時のレスポンス。
type createQuoteResponse struct {
	QuoteID           string `json:"quoteId"`
	IngramQuoteNumber string `json:"ingramQuoteNumber"`
	Message           string `json:"message"`
}

// approveQuoteRequest は見積承認リクエストのボディ。
type approveQuoteRequest struct {
	FinalPrice   string `json:"finalPrice"`
	ShippingInfo string `json:"shippingInfo"`
	TaxInfo      string `json:"taxInfo"`
}

// approveQuoteResponse は見積承認成功時のレスポンス。
type approveQuoteResponse struct {
	Message string        `json:"message"`
	Quote   quoteResponse `json:"quote"`
}

// quoteResponse は見積のAPIレスポンス。
type quoteResponse struct {
	ID                string            `json:"id"`
	IngramQuoteNumber string            `json:"ingramQuoteNumber"`
	UserID            string            `json:"userId"`
	Products          []model.QuoteLine `json:"products"`
	ShippingInfo      string            `json:"shippingInfo"`
	TaxInfo           string            `json:"taxInfo"`
	Status            string            `json:"status"`
	FinalPrice        string            `json:"finalPrice,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// toQuoteResponse はドメインモデルをAPIレスポンスへ変換する。
func toQuoteResponse(q *model.Quote) quoteResponse {
	return quoteResponse{
		ID:                q.ID,
		IngramQuoteNumber: q.IngramQuoteNumber,
		UserID:            q.UserID,
		Products:          q.Products,
		ShippingInfo:      q.ShippingInfo,
		TaxInfo:           q.TaxInfo,
		Status:            string(q.Status),
		FinalPrice:        q.FinalPrice,
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
}

// CreateQuote は見積作成を処理する。
// POST /api/quotes
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), quote.CreateInput{
		UserID:       userID,
		Lines:        req.Products,
		ShippingInfo: req.ShippingInfo,
		TaxInfo:      req.TaxInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordQuoteCreated()

	writeJSONResponse(w, http.StatusCreated, createQuoteResponse{
		QuoteID:           created.ID,
		IngramQuoteNumber: created.IngramQuoteNumber,
		Message:           "見積を作成しました。承認待ちです。",
	})
}

// ApproveQuote は見積承認を処理する。
// POST /api/quotes/{id}/approve
func (h *QuoteHandler) ApproveQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "id")

	// 全フィールドが省略可能なため、ボディなし（EOF）は空リクエストとして扱う
	var req approveQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	approved, err := h.service.Approve(r.Context(), quoteID, quote.ApproveInput{
		FinalPrice:   req.FinalPrice,
		ShippingInfo: req.ShippingInfo,
		TaxInfo:      req.TaxInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordQuoteApproved()

	writeJSONResponse(w, http.StatusOK, approveQuoteResponse{
		Message: "見積を承認しました。",
		Quote:   toQuoteResponse(approved),
	})
}

// GetQuote は見積詳細を取得する。
// GET /api/quotes/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), quoteID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toQuoteResponse(found))
}

// ListQuotes は認証済みユーザーの見積一覧を取得する。
// GET /api/quotes
func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	quotes, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		responses = append(responses, toQuoteResponse(q))
	}

	writeJSONResponse(w, http.StatusOK, responses)
}
