// Package catalog は商品カタログのインメモリキャッシュと読み取りパスを提供する。
// キャッシュは定期更新ジョブが全件置き換えで更新し、APIの読み取りは
// その時点のスナップショットに対して行う。
package catalog

import (
	"sync"
	"time"

	"github.com/vcron/portal/internal/model"
)

// Cache は商品カタログのスナップショットを保持する。
// 更新は集合全体のアトミックな置き換えのみで、部分マージは行わない。
// 読み取り中のゴルーチンは置き換え前後いずれかの完全なスナップショットを観測する。
type Cache struct {
	mu       sync.RWMutex
	products []model.ProductRecord
	loadedAt time.Time
}

// NewCache はCacheの新しいインスタンスを生成する。
// 初期状態は未ロード（スナップショットなし）。
func NewCache() *Cache {
	return &Cache{}
}

// Snapshot は現在のスナップショットを返す。
// 2番目の戻り値は一度でもロードされたかを示す。未ロードの場合はnilとfalseを返す。
// 空のカタログがロードされた状態（空スライスとtrue）とは区別される。
// 返されたスライスは置き換えまで変更されないため、呼び出し元はロックなしで走査できる。
func (c *Cache) Snapshot() ([]model.ProductRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.loadedAt.IsZero() {
		return nil, false
	}
	return c.products, true
}

// Replace はスナップショットを新しい商品集合で置き換える。
// 呼び出し後、productsの所有権はCacheに移る（呼び出し元は変更してはならない）。
func (c *Cache) Replace(products []model.ProductRecord, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = products
	c.loadedAt = now
}

// LoadedAt は最後にスナップショットが置き換えられた時刻を返す。
// 未ロードの場合はゼロ値を返す。
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Size は現在のスナップショットの商品数を返す。
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
