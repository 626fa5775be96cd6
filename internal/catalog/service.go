package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vcron/portal/internal/model"
)

// Fetcher はディストリビューターAPIからのカタログ取得のインターフェースを定義する。
type Fetcher interface {
	// FetchCatalog はカタログを取得する。skuが空の場合は全体を、
	// 指定された場合はそのSKUのみを取得する。
	FetchCatalog(ctx context.Context, sku string) ([]model.ProductRecord, error)
}

// Service は商品一覧の読み取りパスを提供する。
// 通常はキャッシュのスナップショットに対してフィルタを適用し、
// キャッシュで解決できない場合のみ上流へ直接照会する。
type Service struct {
	cache   *Cache
	fetcher Fetcher
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(cache *Cache, fetcher Fetcher, logger *slog.Logger) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger,
	}
}

// GetProducts はフィルタ条件に一致する商品一覧を返す。
//
// 解決順序:
//  1. キャッシュ未ロードかつSKU指定あり: そのSKUのみ上流へ直接照会する。
//     部分的な結果でキャッシュを汚染しないため、結果はキャッシュに入れない。
//  2. キャッシュ未ロードかつSKU指定なし: カタログ全体を取得してキャッシュに
//     格納し、それに対してフィルタを適用する（コールドスタートの読み込み）。
//  3. キャッシュ済み: スナップショットにフィルタを適用する。一致が0件でも
//     上流には照会しない。上流が停止していてもキャッシュが存在する限り
//     応答できることを保証するため。
//
// フィルタ適用後の結果が空の場合は空スライスを返す（エラーではない）。
func (s *Service) GetProducts(ctx context.Context, filter model.ProductFilter) ([]model.ProductRecord, error) {
	snapshot, loaded := s.cache.Snapshot()

	if !loaded {
		if filter.SKU != "" {
			return s.lookupDirect(ctx, filter)
		}

		fetched, err := s.fetcher.FetchCatalog(ctx, "")
		if err != nil {
			return nil, err
		}
		s.cache.Replace(fetched, time.Now())
		s.logger.Info("コールドスタートでカタログをロードしました",
			slog.Int("product_count", len(fetched)),
		)
		snapshot = fetched
	}

	return applyFilter(snapshot, filter), nil
}

// lookupDirect は指定SKUを上流へ直接照会する。結果はキャッシュに入れない。
func (s *Service) lookupDirect(ctx context.Context, filter model.ProductFilter) ([]model.ProductRecord, error) {
	fetched, err := s.fetcher.FetchCatalog(ctx, filter.SKU)
	if err != nil {
		return nil, err
	}

	s.logger.Info("キャッシュ外のSKUを上流へ照会しました",
		slog.String("sku", filter.SKU),
		slog.Int("product_count", len(fetched)),
	)

	return applyFilter(fetched, filter), nil
}

// applyFilter はフィルタ条件をすべて満たす商品のみを返す。
// 空文字列の条件は適用しない。常に非nilのスライスを返す。
func applyFilter(products []model.ProductRecord, filter model.ProductFilter) []model.ProductRecord {
	matched := make([]model.ProductRecord, 0, len(products))
	for _, p := range products {
		if filter.SKU != "" && !strings.Contains(p.SKU, filter.SKU) {
			continue
		}
		if filter.Brand != "" && !strings.EqualFold(p.Brand, filter.Brand) {
			continue
		}
		// カテゴリ未設定のレコードはカテゴリ条件に決して一致しない
		if filter.Category != "" && (p.Category == "" || !strings.EqualFold(p.Category, filter.Category)) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}
