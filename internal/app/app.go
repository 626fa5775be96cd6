// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動を行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vcron/portal/internal/auth"
	"github.com/vcron/portal/internal/catalog"
	"github.com/vcron/portal/internal/config"
	"github.com/vcron/portal/internal/database"
	"github.com/vcron/portal/internal/handler"
	"github.com/vcron/portal/internal/ingram"
	"github.com/vcron/portal/internal/logger"
	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/middleware"
	"github.com/vcron/portal/internal/quote"
	"github.com/vcron/portal/internal/repository"
	"github.com/vcron/portal/internal/security"
	"github.com/vcron/portal/internal/worker/refresh"
)

// portalUserID は単一テナントの固定ユーザーID。
const portalUserID = "1"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーとカタログ更新ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 上流エンドポイントの検証（プライベートネットワーク向けURLを起動時に拒否する）
	guard := security.NewUpstreamGuard()
	if err := guard.ValidateEndpoint(cfg.IngramAPIURL); err != nil {
		return fmt.Errorf("invalid INGRAM_API_URL: %w", err)
	}
	if err := guard.ValidateEndpoint(cfg.IngramTokenURL); err != nil {
		return fmt.Errorf("invalid INGRAM_TOKEN_URL: %w", err)
	}

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 上流クライアントの初期化
	sanitizer := security.NewTextSanitizer()
	upstreamHTTPClient := guard.NewSafeClient(cfg.UpstreamTimeout)

	tokens := ingram.NewTokenProvider(
		cfg.IngramClientID, cfg.IngramClientSecret, cfg.IngramTokenURL,
		upstreamHTTPClient, collector, slog.Default(),
	)
	ingramClient := ingram.NewClient(
		upstreamHTTPClient, tokens, sanitizer, collector, slog.Default(),
		cfg.IngramAPIURL, cfg.IngramCustomerNumber, cfg.IngramCountryCode,
	)

	// 5. ドメインサービスの初期化
	cache := catalog.NewCache()
	catalogService := catalog.NewService(cache, ingramClient, slog.Default())

	quoteRepo := repository.NewPostgresQuoteRepo(db)
	quoteService := quote.NewService(quoteRepo, ingramClient, slog.Default())

	verifier := auth.NewFixedCredentialVerifier(portalUserID, cfg.PortalUserEmail, cfg.PortalUserPassword)
	authService := auth.NewService(verifier, []byte(cfg.JWTSecret), cfg.SessionTokenTTL, slog.Default())

	// 6. カタログ更新ジョブの起動
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	scheduler := refresh.NewScheduler(ingramClient, cache, collector, slog.Default())
	go scheduler.Start(schedulerCtx, cfg.CatalogRefreshInterval)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitQuote),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenAuthenticator: authService,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		RateLimiter:        rateLimiter,
		Logger:             slog.Default(),
		HealthChecker:      db,
		AuthService:        authService,
		ProductService:     catalogService,
		QuoteService:       quoteService,
		Collector:          collector,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスサーバーはAPIとは別ポートで公開する（外部公開しない前提）
	metricsServer := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metrics.SetupMetricsRoute(registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
