package handler

import (
	"context"
	"net/http"

	"github.com/vcron/portal/internal/model"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	// GetProducts はフィルタ条件に一致する商品一覧を返す。
	GetProducts(ctx context.Context, filter model.ProductFilter) ([]model.ProductRecord, error)
}

// ProductHandler は商品一覧のHTTPハンドラー。
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// ListProducts は商品一覧を取得する。
// GET /api/products?sku=&brand=&category=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.ProductFilter{
		SKU:      query.Get("sku"),
		Brand:    query.Get("brand"),
		Category: query.Get("category"),
	}

	products, err := h.service.GetProducts(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, products)
}
