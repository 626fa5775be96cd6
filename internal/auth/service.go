// Package auth は認証機能を提供する。
// 資格情報の検証、セッショントークン（JWT）の発行と検証を含む。
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vcron/portal/internal/model"
)

// tokenIssuer は発行するセッショントークンのiss claim。
const tokenIssuer = "vcron-portal"

// sessionClaims はセッショントークンのclaim構造。
type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service は認証サービスの実装。
// HS256で署名したJWTをセッショントークンとして発行する。
type Service struct {
	verifier CredentialVerifier
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time // テスト用に差し替え可能
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(verifier CredentialVerifier, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		verifier: verifier,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Login は資格情報を検証し、セッショントークンを発行する。
// 資格情報が一致しない場合はAPIError（INVALID_CREDENTIALS）を返す。
// どのフィールドが不一致だったかはエラーに含めない。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	userID, ok := s.verifier.Verify(email, password)
	if !ok {
		s.logger.Warn("ログインに失敗しました",
			slog.String("email", email),
		)
		return "", model.NewInvalidCredentialsError()
	}

	now := s.now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", model.NewPersistenceError(err.Error())
	}

	s.logger.Info("ログインしました",
		slog.String("user_id", userID),
	)

	return token, nil
}

// Authenticate はセッショントークンを検証し、認証済みの呼び出し元を返す。
// トークンの欠落・署名不正・期限切れ・アルゴリズム不一致はすべて
// APIError（UNAUTHENTICATED）に集約する（fail closed）。
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*model.Identity, error) {
	if tokenString == "" {
		return nil, model.NewUnauthenticatedError()
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)

	claims := &sessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, model.NewUnauthenticatedError()
	}

	identity := &model.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}
