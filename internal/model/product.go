package model

// ProductRecord はディストリビューターAPIから取得した商品のスナップショットを表す。
// イミュータブルとして扱い、キャッシュ更新時は集合全体を置き換える（部分マージはしない）。
type ProductRecord struct {
	SKU        string  `json:"sku"`        // ディストリビューター側の部品番号（ingrampartnumber）
	PartNumber string  `json:"partNumber"` // ベンダー部品番号
	Name       string  `json:"name"`       // 商品名
	Brand      string  `json:"brand"`      // ベンダー名
	Category   string  `json:"category"`   // カテゴリ。上流が返さない場合は空文字列のまま
	Price      float64 `json:"price"`      // 見積価格があればそれを、なければ標準単価
	Stock      int     `json:"stock"`      // 在庫数合計
}

// ProductFilter は商品一覧の絞り込み条件を表す。
// 空文字列のフィールドは条件として適用しない。
type ProductFilter struct {
	SKU      string // 部分一致
	Brand    string // 大文字小文字を無視した完全一致
	Category string // 大文字小文字を無視した完全一致。カテゴリ未設定のレコードは常に不一致
}
