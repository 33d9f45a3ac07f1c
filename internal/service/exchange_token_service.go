package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/security"
)

// ExchangeTokenService manages the short-lived, single-use tokens that let a
// browser pick up its session credential after an IdP handoff. Only a peppered
// hash of the raw token is ever stored.
type ExchangeTokenService struct {
	tokens repository.ExchangeTokenRepository
	logger *slog.Logger
	pepper string
	ttl    time.Duration
}

func NewExchangeTokenService(tokens repository.ExchangeTokenRepository, logger *slog.Logger, pepper string, ttl time.Duration) *ExchangeTokenService {
	return &ExchangeTokenService{tokens: tokens, logger: logger, pepper: pepper, ttl: ttl}
}

// GenerateTempToken mints a fresh opaque token bound to the given session
// credential and returns the raw value. The raw token exists only in the
// return value and in the redirect URL built from it.
func (s *ExchangeTokenService) GenerateTempToken(ctx context.Context, credential string, userID uint) (string, error) {
	raw, err := security.NewRandomString(32)
	if err != nil {
		observability.RecordTokenExchangeEvent(ctx, "generate", "error")
		return "", fmt.Errorf("generate exchange token: %w", err)
	}
	token := &domain.ExchangeToken{
		TokenHash:  security.HashToken(raw, s.pepper),
		Credential: credential,
		UserID:     userID,
		ExpiresAt:  time.Now().UTC().Add(s.ttl),
	}
	if err := s.tokens.Create(token); err != nil {
		observability.RecordTokenExchangeEvent(ctx, "generate", "error")
		return "", fmt.Errorf("store exchange token: %w", err)
	}
	observability.RecordTokenExchangeEvent(ctx, "generate", "success")
	return raw, nil
}

// Exchange redeems a raw token for the session credential it carries. A token
// redeems at most once; expired, used, and unknown tokens all fail the same
// way so callers learn nothing from the error shape.
func (s *ExchangeTokenService) Exchange(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		observability.RecordTokenExchangeEvent(ctx, "exchange", "not_found")
		return "", repository.ErrExchangeTokenNotFound
	}
	now := time.Now().UTC()
	token, err := s.tokens.FindActiveByHash(security.HashToken(raw, s.pepper), now)
	if err != nil {
		observability.RecordTokenExchangeEvent(ctx, "exchange", "not_found")
		return "", err
	}
	if err := s.tokens.Consume(token.ID, now); err != nil {
		observability.RecordTokenExchangeEvent(ctx, "exchange", "not_found")
		return "", err
	}
	observability.RecordTokenExchangeEvent(ctx, "exchange", "success")
	return token.Credential, nil
}

// SweepExpired removes tokens past their expiry or already redeemed.
func (s *ExchangeTokenService) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpired(time.Now().UTC())
	if err != nil {
		observability.RecordTokenExchangeEvent(ctx, "sweep", "error")
		return 0, err
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "swept exchange tokens", "removed", removed)
	}
	observability.RecordTokenExchangeEvent(ctx, "sweep", "success")
	return removed, nil
}
