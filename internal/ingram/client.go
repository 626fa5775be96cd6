// Package ingram はIngram Micro Reseller API（resellers/v6）連携機能を提供する。
// OAuth2トークン管理、価格・在庫カタログの取得、見積の作成依頼を含む。
package ingram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/model"
	"github.com/vcron/portal/internal/security"
)

const (
	// catalogPath は価格・在庫一括取得APIのパス。
	catalogPath = "/catalog/priceandavailability"
	// quotesPath は見積作成APIのパス。
	quotesPath = "/quotes"
)

// Client はIngram Micro Reseller APIのクライアント。
// すべてのリクエストにBearerトークンとIM-*ヘッダーを付与する。
type Client struct {
	httpClient     *http.Client
	tokens         TokenSource
	sanitizer      security.TextSanitizerService
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	baseURL        string // テスト用にベースURLを差し替え可能
	customerNumber string
	countryCode    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, tokens TokenSource, sanitizer security.TextSanitizerService, collector metrics.MetricsCollector, logger *slog.Logger, baseURL, customerNumber, countryCode string) *Client {
	return &Client{
		httpClient:     httpClient,
		tokens:         tokens,
		sanitizer:      sanitizer,
		collector:      collector,
		logger:         logger,
		baseURL:        baseURL,
		customerNumber: customerNumber,
		countryCode:    countryCode,
	}
}

// requestPreamble は全リクエストに含める共通部。
type requestPreamble struct {
	ISOCountryCode string `json:"isocountrycode"`
	CustomerNumber string `json:"customernumber"`
}

// catalogRequest は価格・在庫取得リクエストのボディ。
// productsが空の場合、上流はカタログ全体を返す。
type catalogRequest struct {
	RequestPreamble requestPreamble       `json:"requestpreamble"`
	Products        []catalogProductQuery `json:"products"`
}

type catalogProductQuery struct {
	IngramPartNumber string `json:"ingrampartnumber"`
}

// catalogResponse は価格・在庫取得レスポンスのボディ。
type catalogResponse struct {
	ServiceResponse struct {
		Products []upstreamProduct `json:"products"`
	} `json:"serviceresponse"`
}

// upstreamProduct は上流の商品表現。フィールド名は上流APIのまま。
type upstreamProduct struct {
	IngramPartNumber  string  `json:"ingrampartnumber"`
	VendorPartNumber  string  `json:"vendorpartnumber"`
	Description       string  `json:"description"`
	VendorName        string  `json:"vendorname"`
	Category          string  `json:"category"`
	QuotePrice        float64 `json:"quotePrice"`
	UnitPrice         float64 `json:"unitprice"`
	TotalAvailability int     `json:"totalavailability"`
}

// quoteRequest は見積作成リクエストのボディ。
type quoteRequest struct {
	RequestPreamble requestPreamble    `json:"requestpreamble"`
	QuoteName       string             `json:"quoteName"`
	Products        []quoteProductLine `json:"products"`
}

type quoteProductLine struct {
	IngramPartNumber string `json:"ingrampartnumber"`
	Quantity         int    `json:"quantity"`
}

// quoteResponse は見積作成レスポンスのボディ。
type quoteResponse struct {
	QuoteNumber string `json:"quoteNumber"`
}

// FetchCatalog は価格・在庫カタログを取得してポータルの商品表現に変換する。
// skuが空文字列の場合はカタログ全体を要求する（定期更新用）。
// skuが指定された場合はそのSKUのみを要求する（キャッシュミス時の直接照会用）。
// 価格は見積価格（quotePrice）があればそれを優先し、なければ標準単価を使用する。
// 呼び出し失敗時はAPIError（UPSTREAM_UNAVAILABLE）を返す。
func (c *Client) FetchCatalog(ctx context.Context, sku string) ([]model.ProductRecord, error) {
	reqBody := catalogRequest{
		RequestPreamble: requestPreamble{
			ISOCountryCode: c.countryCode,
			CustomerNumber: c.customerNumber,
		},
		Products: []catalogProductQuery{},
	}
	if sku != "" {
		reqBody.Products = []catalogProductQuery{{IngramPartNumber: sku}}
	}

	correlationID := fmt.Sprintf("vcron-%d", time.Now().UnixMilli())

	var respBody catalogResponse
	if err := c.post(ctx, catalogPath, correlationID, reqBody, &respBody); err != nil {
		return nil, err
	}

	records := make([]model.ProductRecord, 0, len(respBody.ServiceResponse.Products))
	for _, p := range respBody.ServiceResponse.Products {
		price := p.QuotePrice
		if price == 0 {
			price = p.UnitPrice
		}
		records = append(records, model.ProductRecord{
			SKU:        p.IngramPartNumber,
			PartNumber: p.VendorPartNumber,
			Name:       c.sanitizer.SanitizeText(p.Description),
			Brand:      c.sanitizer.SanitizeText(p.VendorName),
			Category:   c.sanitizer.SanitizeText(p.Category),
			Price:      price,
			Stock:      p.TotalAvailability,
		})
	}

	return records, nil
}

// CreateQuote は上流に見積を作成し、採番された見積番号への参照を返す。
// 明細の検証は呼び出し元（見積ワークフロー）が行う。
// 呼び出し失敗時はAPIError（UPSTREAM_UNAVAILABLE）を返す。
func (c *Client) CreateQuote(ctx context.Context, lines []model.QuoteLine) (*model.QuoteRef, error) {
	now := time.Now().UnixMilli()

	products := make([]quoteProductLine, 0, len(lines))
	for _, line := range lines {
		products = append(products, quoteProductLine{
			IngramPartNumber: line.SKU,
			Quantity:         line.Quantity,
		})
	}

	reqBody := quoteRequest{
		RequestPreamble: requestPreamble{
			ISOCountryCode: c.countryCode,
			CustomerNumber: c.customerNumber,
		},
		QuoteName: fmt.Sprintf("VcronQuote-%d", now),
		Products:  products,
	}

	correlationID := fmt.Sprintf("vcron-quote-%d", now)

	var respBody quoteResponse
	if err := c.post(ctx, quotesPath, correlationID, reqBody, &respBody); err != nil {
		return nil, err
	}

	if respBody.QuoteNumber == "" {
		c.logger.Error("見積作成レスポンスに見積番号が含まれていません")
		return nil, model.NewUpstreamUnavailableError("見積番号が返されませんでした")
	}

	return &model.QuoteRef{QuoteNumber: respBody.QuoteNumber}, nil
}

// post はJSONボディをPOSTしてレスポンスをデコードする。
// Bearerトークンの取得、IM-*ヘッダーの付与、ステータスコードの検証を行う。
func (c *Client) post(ctx context.Context, path, correlationID string, payload, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.NewUpstreamUnavailableError(fmt.Sprintf("リクエストボディの生成に失敗しました: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return model.NewUpstreamUnavailableError(fmt.Sprintf("HTTPリクエストの作成に失敗しました: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("IM-CustomerNumber", c.customerNumber)
	req.Header.Set("IM-CountryCode", c.countryCode)
	req.Header.Set("IM-CorrelationID", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ディストリビューターAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	c.collector.RecordUpstreamStatus(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamUnavailableError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ディストリビューターAPIがエラーステータスを返しました",
			slog.String("path", path),
			slog.String("correlation_id", correlationID),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewUpstreamUnavailableError(fmt.Sprintf("ステータス %d が返されました", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Error("ディストリビューターAPIのレスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamUnavailableError(fmt.Sprintf("レスポンスJSONのパースに失敗しました: %v", err))
	}

	return nil
}
