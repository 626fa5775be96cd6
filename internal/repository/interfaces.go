// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/vcron/portal/internal/model"
)

// QuoteRepository は見積データの永続化インターフェース。
type QuoteRepository interface {
	// Create は見積を作成する。
	Create(ctx context.Context, quote *model.Quote) error

	// FindByID は指定IDの見積を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Quote, error)

	// Approve は見積を承認済み状態へ更新し、更新後の見積を返す。
	// 対象の見積が存在しない場合はnilを返す（更新は行われない）。
	// 承認済みの見積に対して再実行した場合も同様に上書き更新する。
	Approve(ctx context.Context, id, finalPrice, shippingInfo, taxInfo string, updatedAt time.Time) (*model.Quote, error)

	// ListByUserID は指定ユーザーの見積を作成日時の降順で取得する。
	ListByUserID(ctx context.Context, userID string) ([]*model.Quote, error)
}
