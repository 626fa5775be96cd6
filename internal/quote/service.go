// Package quote は見積ワークフローを提供する。
// 見積の作成（上流への依頼と記録の永続化）、承認、参照を含む。
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vcron/portal/internal/model"
	"github.com/vcron/portal/internal/repository"
)

const (
	// defaultFinalPrice は承認時に最終価格が指定されなかった場合のセンチネル値。
	defaultFinalPrice = "TBD"
	// defaultInfo は配送・税情報が指定されなかった場合のプレースホルダー。
	defaultInfo = "Pending"
)

// UpstreamQuoter はディストリビューターへの見積作成依頼のインターフェースを定義する。
type UpstreamQuoter interface {
	CreateQuote(ctx context.Context, lines []model.QuoteLine) (*model.QuoteRef, error)
}

// Service は見積ワークフローの実装。
// statusとfinal_priceの書き込みはこのサービスのみが行う。
type Service struct {
	repo     repository.QuoteRepository
	upstream UpstreamQuoter
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.QuoteRepository, upstream UpstreamQuoter, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		upstream: upstream,
		logger:   logger,
	}
}

// CreateInput は見積作成の入力を表す。
type CreateInput struct {
	UserID       string
	Lines        []model.QuoteLine
	ShippingInfo string
	TaxInfo      string
}

// Create は見積を作成する。
// 明細を検証し、上流に見積を作成してから、採番された見積番号とともに
// 承認待ち状態の記録を永続化する。上流への依頼が失敗した場合は何も記録しない。
// 永続化が失敗した場合、上流の見積は作成済みのまま残るため、
// 採番された見積番号を含めてログに記録する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Quote, error) {
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	ref, err := s.upstream.CreateQuote(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quote := &model.Quote{
		ID:                uuid.NewString(),
		IngramQuoteNumber: ref.QuoteNumber,
		UserID:            input.UserID,
		Products:          input.Lines,
		ShippingInfo:      valueOrDefault(input.ShippingInfo, defaultInfo),
		TaxInfo:           valueOrDefault(input.TaxInfo, defaultInfo),
		Status:            model.QuoteStatusPendingApproval,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, quote); err != nil {
		// 上流側には見積が残る。突き合わせができるよう見積番号を残す
		s.logger.Error("上流で作成済みの見積の永続化に失敗しました",
			slog.String("ingram_quote_number", ref.QuoteNumber),
			slog.String("user_id", input.UserID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError(err.Error())
	}

	s.logger.Info("見積を作成しました",
		slog.String("quote_id", quote.ID),
		slog.String("ingram_quote_number", ref.QuoteNumber),
		slog.String("user_id", input.UserID),
		slog.Int("line_count", len(input.Lines)),
	)

	return quote, nil
}

// ApproveInput は見積承認の入力を表す。
type ApproveInput struct {
	FinalPrice   string
	ShippingInfo string
	TaxInfo      string
}

// Approve は見積を承認済み状態へ更新し、更新後の見積を返す。
// 未指定のフィールドにはプレースホルダー（最終価格は"TBD"、配送・税情報は"Pending"）
// を設定する。対象が存在しない場合はAPIError（QUOTE_NOT_FOUND）を返す。
// 承認済みの見積に対する再実行は、今回の入力値による上書き更新として成功する。
func (s *Service) Approve(ctx context.Context, id string, input ApproveInput) (*model.Quote, error) {
	quote, err := s.repo.Approve(ctx,
		id,
		valueOrDefault(input.FinalPrice, defaultFinalPrice),
		valueOrDefault(input.ShippingInfo, defaultInfo),
		valueOrDefault(input.TaxInfo, defaultInfo),
		time.Now(),
	)
	if err != nil {
		return nil, model.NewPersistenceError(err.Error())
	}
	if quote == nil {
		return nil, model.NewQuoteNotFoundError(id)
	}

	s.logger.Info("見積を承認しました",
		slog.String("quote_id", quote.ID),
		slog.String("final_price", quote.FinalPrice),
	)

	return quote, nil
}

// Get は指定IDの見積を返す。
// 対象が存在しない場合はAPIError（QUOTE_NOT_FOUND）を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Quote, error) {
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewPersistenceError(err.Error())
	}
	if quote == nil {
		return nil, model.NewQuoteNotFoundError(id)
	}
	return quote, nil
}

// ListByUser は指定ユーザーの見積一覧を作成日時の降順で返す。
// 見積が1件もない場合は空スライスを返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Quote, error) {
	quotes, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewPersistenceError(err.Error())
	}
	if quotes == nil {
		quotes = []*model.Quote{}
	}
	return quotes, nil
}

// validateLines は見積明細を検証する。
// 明細は1件以上、各明細はSKUが非空かつ数量が1以上でなければならない。
func validateLines(lines []model.QuoteLine) error {
	if len(lines) == 0 {
		return model.NewInvalidQuoteLinesError("明細が1件もありません")
	}
	for i, line := range lines {
		if line.SKU == "" {
			return model.NewInvalidQuoteLinesError(fmt.Sprintf("%d件目の明細にSKUがありません", i+1))
		}
		if line.Quantity < 1 {
			return model.NewInvalidQuoteLinesError(fmt.Sprintf("%d件目の明細の数量が不正です: %d", i+1, line.Quantity))
		}
	}
	return nil
}

// valueOrDefault はvalueが空文字列の場合にfallbackを返す。
func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
