// Package refresh は商品カタログのバックグラウンド定期更新処理を提供する。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/model"
)

// CatalogFetcher はディストリビューターAPIからのカタログ取得のインターフェース。
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, sku string) ([]model.ProductRecord, error)
}

// CatalogStore はカタログスナップショットの置き換え先のインターフェース。
// catalog.Cacheの部分集合として定義する。
type CatalogStore interface {
	Replace(products []model.ProductRecord, now time.Time)
	Size() int
}

// Scheduler はカタログの定期更新を行う。
// 一定間隔でカタログ全体を取得し、キャッシュをアトミックに置き換える。
// 取得に失敗した場合は前回のスナップショットを保持したまま次の周期を待つ。
type Scheduler struct {
	fetcher   CatalogFetcher
	store     CatalogStore
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(fetcher CatalogFetcher, store CatalogStore, collector metrics.MetricsCollector, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		fetcher:   fetcher,
		store:     store,
		collector: collector,
		logger:    logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("カタログ更新スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行し、最初のリクエストが来る前にキャッシュを温める
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("カタログ更新に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("カタログ更新スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("カタログ更新に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はカタログ全体を1回取得し、キャッシュを置き換える。
// 取得に失敗した場合はキャッシュを変更せずにエラーを返す。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	products, err := s.fetcher.FetchCatalog(ctx, "")
	s.collector.RecordRefreshLatency(time.Since(start))

	if err != nil {
		s.collector.RecordRefreshFailure()
		return err
	}

	s.store.Replace(products, time.Now())
	s.collector.RecordRefreshSuccess()
	s.collector.SetCatalogSize(len(products))

	s.logger.Info("カタログを更新しました",
		slog.Int("product_count", len(products)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
