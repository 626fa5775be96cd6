package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenAuthenticator middleware.TokenAuthenticator
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService AuthServiceInterface

	// 商品カタログ
	ProductService ProductServiceInterface

	// 見積
	QuoteService QuoteServiceInterface

	// メトリクス
	Collector metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Bearer認証 → RateLimit(General)
//
// ログインルート（POST /api/login）とヘルスチェック（GET /health）は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService)
	productHandler := NewProductHandler(deps.ProductService)
	quoteHandler := NewQuoteHandler(deps.QuoteService, deps.Collector)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Post("/api/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Bearer認証 → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenAuthenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 商品カタログ
		r.Get("/api/products", productHandler.ListProducts)

		// 見積管理
		r.Route("/api/quotes", func(r chi.Router) {
			// POST /api/quotes - 見積作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.QuoteCreationMiddleware()).Post("/", quoteHandler.CreateQuote)
			r.Get("/", quoteHandler.ListQuotes)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", quoteHandler.GetQuote)
				r.Post("/approve", quoteHandler.ApproveQuote)
			})
		})
	})

	return r
}
