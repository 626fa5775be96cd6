package refresh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/model"
)

// mockCatalogFetcher はCatalogFetcherのテスト用モック。
type mockCatalogFetcher struct {
	fetchCatalogFunc func(ctx context.Context, sku string) ([]model.ProductRecord, error)
	callCount        atomic.Int32
}

func (m *mockCatalogFetcher) FetchCatalog(ctx context.Context, sku string) ([]model.ProductRecord, error) {
	m.callCount.Add(1)
	return m.fetchCatalogFunc(ctx, sku)
}

// mockCatalogStore はCatalogStoreのテスト用モック。
type mockCatalogStore struct {
	replaced [][]model.ProductRecord
}

func (m *mockCatalogStore) Replace(products []model.ProductRecord, now time.Time) {
	m.replaced = append(m.replaced, products)
}

func (m *mockCatalogStore) Size() int {
	if len(m.replaced) == 0 {
		return 0
	}
	return len(m.replaced[len(m.replaced)-1])
}

func newTestScheduler(fetcher *mockCatalogFetcher, store *mockCatalogStore) *Scheduler {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	return NewScheduler(fetcher, store, collector, logger)
}

func TestRunOnce_ReplacesSnapshot(t *testing.T) {
	products := []model.ProductRecord{
		{SKU: "ABC123", Brand: "HP"},
		{SKU: "XYZ789", Brand: "Dell"},
	}
	fetcher := &mockCatalogFetcher{
		fetchCatalogFunc: func(ctx context.Context, sku string) ([]model.ProductRecord, error) {
			if sku != "" {
				t.Errorf("sku = %q, want 空文字列（カタログ全体の取得）", sku)
			}
			return products, nil
		},
	}
	store := &mockCatalogStore{}
	scheduler := newTestScheduler(fetcher, store)

	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce がエラーを返した: %v", err)
	}

	if len(store.replaced) != 1 {
		t.Fatalf("置き換え回数 = %d, want 1", len(store.replaced))
	}
	if len(store.replaced[0]) != 2 {
		t.Errorf("置き換えられた商品数 = %d, want 2", len(store.replaced[0]))
	}
}

func TestRunOnce_FailureKeepsPreviousSnapshot(t *testing.T) {
	wantErr := model.NewUpstreamUnavailableError("接続できません")
	fetcher := &mockCatalogFetcher{
		fetchCatalogFunc: func(ctx context.Context, sku string) ([]model.ProductRecord, error) {
			return nil, wantErr
		},
	}
	store := &mockCatalogStore{}
	scheduler := newTestScheduler(fetcher, store)

	err := scheduler.RunOnce(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("エラー = %v, want %v", err, wantErr)
	}

	// 失敗時はキャッシュを置き換えない（前回のスナップショットが残る）
	if len(store.replaced) != 0 {
		t.Errorf("失敗時に置き換えが発生した: %d回", len(store.replaced))
	}
}

func TestStart_RunsImmediatelyThenOnTicker(t *testing.T) {
	fetcher := &mockCatalogFetcher{
		fetchCatalogFunc: func(ctx context.Context, sku string) ([]model.ProductRecord, error) {
			return []model.ProductRecord{{SKU: "ABC123"}}, nil
		},
	}
	store := &mockCatalogStore{}
	scheduler := newTestScheduler(fetcher, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx, 20*time.Millisecond)
		close(done)
	}()

	// 起動直後の1回 + ティッカーによる複数回の実行を待つ
	time.Sleep(70 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("コンテキストのキャンセル後もスケジューラが停止しない")
	}

	got := fetcher.callCount.Load()
	if got < 2 {
		t.Errorf("カタログ取得回数 = %d, want 2以上（起動直後の実行 + ティッカー）", got)
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	fetcher := &mockCatalogFetcher{
		fetchCatalogFunc: func(ctx context.Context, sku string) ([]model.ProductRecord, error) {
			return nil, nil
		},
	}
	store := &mockCatalogStore{}
	scheduler := newTestScheduler(fetcher, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("キャンセル済みコンテキストでスケジューラが停止しない")
	}
}
