package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/middleware"
	"github.com/vcron/portal/internal/model"
	"github.com/vcron/portal/internal/quote"
)

// mockQuoteService はQuoteServiceInterfaceのモック実装。
type mockQuoteService struct {
	createFn     func(ctx context.Context, input quote.CreateInput) (*model.Quote, error)
	approveFn    func(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error)
	getFn        func(ctx context.Context, id string) (*model.Quote, error)
	listByUserFn func(ctx context.Context, userID string) ([]*model.Quote, error)
}

func (m *mockQuoteService) Create(ctx context.Context, input quote.CreateInput) (*model.Quote, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return nil, nil
}

func (m *mockQuoteService) Approve(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error) {
	if m.approveFn != nil {
		return m.approveFn(ctx, id, input)
	}
	return nil, nil
}

func (m *mockQuoteService) Get(ctx context.Context, id string) (*model.Quote, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockQuoteService) ListByUser(ctx context.Context, userID string) ([]*model.Quote, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func newTestQuoteHandler(svc *mockQuoteService) *QuoteHandler {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return NewQuoteHandler(svc, collector)
}

func testQuote() *model.Quote {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Quote{
		ID:                "quote-id-1",
		IngramQuoteNumber: "QUO-12345",
		UserID:            "1",
		Products:          []model.QuoteLine{{SKU: "ABC123", Quantity: 2}},
		ShippingInfo:      "Pending",
		TaxInfo:           "Pending",
		Status:            model.QuoteStatusPendingApproval,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// --- POST /api/quotes テスト ---

func TestQuoteHandler_CreateQuote_Success(t *testing.T) {
	svc := &mockQuoteService{
		createFn: func(ctx context.Context, input quote.CreateInput) (*model.Quote, error) {
			if input.UserID != "1" {
				t.Errorf("input.UserID = %q, want %q", input.UserID, "1")
			}
			if len(input.Lines) != 1 || input.Lines[0].SKU != "ABC123" || input.Lines[0].Quantity != 2 {
				t.Errorf("input.Lines = %+v, want 1件 (ABC123 x2)", input.Lines)
			}
			return testQuote(), nil
		},
	}

	h := newTestQuoteHandler(svc)

	body := `{"products": [{"sku": "ABC123", "quantity": 2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.CreateQuote(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["quoteId"] != "quote-id-1" {
		t.Errorf("quoteId = %v, want %q", result["quoteId"], "quote-id-1")
	}
	if result["ingramQuoteNumber"] != "QUO-12345" {
		t.Errorf("ingramQuoteNumber = %v, want %q", result["ingramQuoteNumber"], "QUO-12345")
	}
	if result["message"] == "" {
		t.Error("message が空であってはならない")
	}
}

func TestQuoteHandler_CreateQuote_NoUserID(t *testing.T) {
	h := newTestQuoteHandler(&mockQuoteService{})

	body := `{"products": [{"sku": "ABC123", "quantity": 1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreateQuote(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestQuoteHandler_CreateQuote_MalformedBody(t *testing.T) {
	h := newTestQuoteHandler(&mockQuoteService{})

	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewBufferString("{broken"))
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.CreateQuote(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQuoteHandler_CreateQuote_InvalidLines(t *testing.T) {
	svc := &mockQuoteService{
		createFn: func(ctx context.Context, input quote.CreateInput) (*model.Quote, error) {
			return nil, model.NewInvalidQuoteLinesError("明細が1件もありません")
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewBufferString(`{"products": []}`))
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.CreateQuote(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidQuoteLines {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidQuoteLines)
	}
}

// 上流の見積作成失敗は500として返すこと。
func TestQuoteHandler_CreateQuote_UpstreamFailure(t *testing.T) {
	svc := &mockQuoteService{
		createFn: func(ctx context.Context, input quote.CreateInput) (*model.Quote, error) {
			return nil, model.NewUpstreamUnavailableError("status 500")
		},
	}

	h := newTestQuoteHandler(svc)

	body := `{"products": [{"sku": "ABC123", "quantity": 1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewBufferString(body))
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.CreateQuote(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- POST /api/quotes/{id}/approve テスト ---

func TestQuoteHandler_ApproveQuote_Success(t *testing.T) {
	svc := &mockQuoteService{
		approveFn: func(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error) {
			if id != "quote-id-1" {
				t.Errorf("id = %q, want %q", id, "quote-id-1")
			}
			if input.FinalPrice != "1500.00" {
				t.Errorf("input.FinalPrice = %q, want %q", input.FinalPrice, "1500.00")
			}
			approved := testQuote()
			approved.Status = model.QuoteStatusApproved
			approved.FinalPrice = "1500.00"
			return approved, nil
		},
	}

	h := newTestQuoteHandler(svc)

	body := `{"finalPrice": "1500.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes/quote-id-1/approve", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "quote-id-1")
	w := httptest.NewRecorder()

	h.ApproveQuote(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result struct {
		Message string         `json:"message"`
		Quote   map[string]any `json:"quote"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Quote["status"] != string(model.QuoteStatusApproved) {
		t.Errorf("quote.status = %v, want %q", result.Quote["status"], model.QuoteStatusApproved)
	}
	if result.Quote["finalPrice"] != "1500.00" {
		t.Errorf("quote.finalPrice = %v, want %q", result.Quote["finalPrice"], "1500.00")
	}
}

// ボディなしの承認リクエストは空の入力として受け付けること（全フィールドが省略可能）。
func TestQuoteHandler_ApproveQuote_EmptyBody(t *testing.T) {
	svc := &mockQuoteService{
		approveFn: func(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error) {
			if input.FinalPrice != "" || input.ShippingInfo != "" || input.TaxInfo != "" {
				t.Errorf("input = %+v, want 空の入力", input)
			}
			approved := testQuote()
			approved.Status = model.QuoteStatusApproved
			approved.FinalPrice = "TBD"
			return approved, nil
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes/quote-id-1/approve", nil)
	req = withChiURLParam(req, "id", "quote-id-1")
	w := httptest.NewRecorder()

	h.ApproveQuote(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// 存在しない見積IDの承認は404を返すこと。
func TestQuoteHandler_ApproveQuote_NotFound(t *testing.T) {
	svc := &mockQuoteService{
		approveFn: func(ctx context.Context, id string, input quote.ApproveInput) (*model.Quote, error) {
			return nil, model.NewQuoteNotFoundError(id)
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes/missing-id/approve", bytes.NewBufferString(`{}`))
	req = withChiURLParam(req, "id", "missing-id")
	w := httptest.NewRecorder()

	h.ApproveQuote(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeQuoteNotFound {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeQuoteNotFound)
	}
}

// --- GET /api/quotes/{id} テスト ---

func TestQuoteHandler_GetQuote_Success(t *testing.T) {
	svc := &mockQuoteService{
		getFn: func(ctx context.Context, id string) (*model.Quote, error) {
			return testQuote(), nil
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/quote-id-1", nil)
	req = withChiURLParam(req, "id", "quote-id-1")
	w := httptest.NewRecorder()

	h.GetQuote(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["id"] != "quote-id-1" {
		t.Errorf("id = %v, want %q", result["id"], "quote-id-1")
	}
	if result["ingramQuoteNumber"] != "QUO-12345" {
		t.Errorf("ingramQuoteNumber = %v, want %q", result["ingramQuoteNumber"], "QUO-12345")
	}
	// 未承認の見積ではfinalPriceを省略する
	if _, ok := result["finalPrice"]; ok {
		t.Error("未承認の見積にfinalPriceが含まれてはならない")
	}
}

// --- GET /api/quotes テスト ---

func TestQuoteHandler_ListQuotes_Success(t *testing.T) {
	svc := &mockQuoteService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.Quote, error) {
			if userID != "1" {
				t.Errorf("userID = %q, want %q", userID, "1")
			}
			return []*model.Quote{testQuote()}, nil
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.ListQuotes(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len(result) = %d, want 1", len(result))
	}
	if result[0]["id"] != "quote-id-1" {
		t.Errorf("id = %v, want %q", result[0]["id"], "quote-id-1")
	}
}

// 見積が1件もないユーザーにはnullではなく空配列を返すこと。
func TestQuoteHandler_ListQuotes_Empty(t *testing.T) {
	svc := &mockQuoteService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.Quote, error) {
			return []*model.Quote{}, nil
		},
	}

	h := newTestQuoteHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	req = withUserID(req, "1")
	w := httptest.NewRecorder()

	h.ListQuotes(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if body != "[]\n" {
		t.Errorf("body = %q, want %q", body, "[]\n")
	}
}
