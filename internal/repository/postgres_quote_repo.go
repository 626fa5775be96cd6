package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vcron/portal/internal/model"
)

// PostgresQuoteRepo はPostgreSQLを使用した見積リポジトリ。
// 明細リストはJSONBカラムに順序を保持したまま格納する。
type PostgresQuoteRepo struct {
	db *sql.DB
}

// NewPostgresQuoteRepo はPostgresQuoteRepoを生成する。
func NewPostgresQuoteRepo(db *sql.DB) *PostgresQuoteRepo {
	return &PostgresQuoteRepo{db: db}
}

// Create は見積を作成する。
func (r *PostgresQuoteRepo) Create(ctx context.Context, quote *model.Quote) error {
	products, err := json.Marshal(quote.Products)
	if err != nil {
		return fmt.Errorf("見積明細のJSON変換に失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO quotes (id, ingram_quote_number, user_id, products, shipping_info,
		                     tax_info, status, final_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		quote.ID, quote.IngramQuoteNumber, quote.UserID, products,
		nullString(quote.ShippingInfo), nullString(quote.TaxInfo),
		string(quote.Status), nullString(quote.FinalPrice),
		quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("見積の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの見積を取得する。見つからない場合はnilを返す。
func (r *PostgresQuoteRepo) FindByID(ctx context.Context, id string) (*model.Quote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, ingram_quote_number, user_id, products, shipping_info,
		        tax_info, status, final_price, created_at, updated_at
		 FROM quotes WHERE id = $1`,
		id,
	)

	quote, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("見積の取得に失敗しました: %w", err)
	}
	return quote, nil
}

// Approve は見積を承認済み状態へ更新し、更新後の見積を返す。
// 対象の見積が存在しない場合はnilを返す。
// 更新と取得を1つのUPDATE ... RETURNINGで行うため、存在確認と更新の間に
// 競合が入り込む余地はない。
func (r *PostgresQuoteRepo) Approve(ctx context.Context, id, finalPrice, shippingInfo, taxInfo string, updatedAt time.Time) (*model.Quote, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE quotes
		 SET status = $2, final_price = $3, shipping_info = $4, tax_info = $5, updated_at = $6
		 WHERE id = $1
		 RETURNING id, ingram_quote_number, user_id, products, shipping_info,
		           tax_info, status, final_price, created_at, updated_at`,
		id, string(model.QuoteStatusApproved),
		nullString(finalPrice), nullString(shippingInfo), nullString(taxInfo),
		updatedAt,
	)

	quote, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("見積の承認更新に失敗しました: %w", err)
	}
	return quote, nil
}

// ListByUserID は指定ユーザーの見積を作成日時の降順で取得する。
func (r *PostgresQuoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Quote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ingram_quote_number, user_id, products, shipping_info,
		        tax_info, status, final_price, created_at, updated_at
		 FROM quotes WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("見積一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var quotes []*model.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("見積一覧の読み取りに失敗しました: %w", err)
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("見積一覧の走査に失敗しました: %w", err)
	}

	return quotes, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通部。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQuote は1行分の見積を読み取る。
func scanQuote(row rowScanner) (*model.Quote, error) {
	quote := &model.Quote{}
	var products []byte
	var shippingInfo, taxInfo, finalPrice sql.NullString
	var status string

	err := row.Scan(
		&quote.ID, &quote.IngramQuoteNumber, &quote.UserID, &products,
		&shippingInfo, &taxInfo, &status, &finalPrice,
		&quote.CreatedAt, &quote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(products, &quote.Products); err != nil {
		return nil, fmt.Errorf("見積明細のJSON解析に失敗しました: %w", err)
	}

	quote.ShippingInfo = nullStringValue(shippingInfo)
	quote.TaxInfo = nullStringValue(taxInfo)
	quote.FinalPrice = nullStringValue(finalPrice)
	quote.Status = model.QuoteStatus(status)

	return quote, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// コンパイル時のインターフェース実装チェック
var _ QuoteRepository = (*PostgresQuoteRepo)(nil)
