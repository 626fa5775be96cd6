package ingram

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vcron/portal/internal/metrics"
	"github.com/vcron/portal/internal/model"
)

// refreshSafetyMargin はトークン有効期限の安全マージン。
// 期限のrefreshSafetyMargin前には期限切れとみなして再取得し、
// 期限間際のトークンで上流リクエストが失敗することを防ぐ。
const refreshSafetyMargin = 60 * time.Second

// TokenSource はディストリビューターAPI用のアクセストークン供給の
// インターフェースを定義する。
type TokenSource interface {
	// Token は有効なアクセストークンを返す。
	// キャッシュ済みトークンが有効期限内（安全マージン込み）であればそれを返し、
	// 期限切れの場合は再取得する。取得失敗時はAPIError（UPSTREAM_AUTH_ERROR）を返す。
	Token(ctx context.Context) (string, error)
}

// TokenProvider はTokenSourceの実装。
// OAuth2クライアントクレデンシャルフローでトークンを取得し、
// oauth2.ReuseTokenSourceWithExpiryでキャッシュする。
// 並行呼び出し時の再取得はoauth2パッケージ内部のミューテックスで直列化されるため、
// 同時に期限切れを観測した複数ゴルーチンが取得を多重実行することはない。
type TokenProvider struct {
	source oauth2.TokenSource
}

// コンパイル時のインターフェース実装チェック
var _ TokenSource = (*TokenProvider)(nil)

// NewTokenProvider はTokenProviderの新しいインスタンスを生成する。
// httpClientがnilの場合はhttp.DefaultClientが使用される。
func NewTokenProvider(clientID, clientSecret, tokenURL string, httpClient *http.Client, collector metrics.MetricsCollector, logger *slog.Logger) *TokenProvider {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	// loggingTokenSourceはReuseTokenSourceWithExpiryの内側に置く。
	// キャッシュミス（実際のトークン取得）時のみログが出る。
	base := &loggingTokenSource{
		base:      cc.TokenSource(ctx),
		collector: collector,
		logger:    logger,
	}

	return &TokenProvider{
		source: oauth2.ReuseTokenSourceWithExpiry(nil, base, refreshSafetyMargin),
	}
}

// Token は有効なアクセストークンを返す。
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tok, err := p.source.Token()
	if err != nil {
		return "", model.NewUpstreamAuthError(err.Error())
	}

	return tok.AccessToken, nil
}

// loggingTokenSource はトークン取得の成否をログとメトリクスに記録するデコレーター。
type loggingTokenSource struct {
	base      oauth2.TokenSource
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// Token は下位のTokenSourceからトークンを取得し、結果をログとメトリクスに記録する。
func (s *loggingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		s.logger.Error("ディストリビューターAPIのトークン取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.collector.RecordTokenRefresh()
	s.logger.Info("ディストリビューターAPIのトークンを更新しました",
		slog.Time("expiry", tok.Expiry),
	)
	return tok, nil
}
