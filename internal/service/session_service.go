package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/security"
)

// ErrInvalidSession covers every way a credential can fail validation so the
// caller cannot tell a forged credential from an expired or revoked one.
var ErrInvalidSession = errors.New("invalid session")

// CredentialCodec signs and verifies the stateless half of a session
// credential. security.JWTManager is the production implementation.
type CredentialCodec interface {
	Issue(userID uint, ttl time.Duration) (string, error)
	Verify(raw string) (uint, error)
}

// SessionService issues session credentials and validates them against both
// the codec signature and the server-side session record. Revocation works
// because validation always consults the store.
type SessionService struct {
	sessions repository.SessionRepository
	codec    CredentialCodec
	logger   *slog.Logger
	pepper   string
	ttl      time.Duration
}

func NewSessionService(sessions repository.SessionRepository, codec CredentialCodec, logger *slog.Logger, pepper string, ttl time.Duration) *SessionService {
	return &SessionService{sessions: sessions, codec: codec, logger: logger, pepper: pepper, ttl: ttl}
}

// TTL reports the configured session lifetime, used to scope the cookie.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// StartSession mints a credential for the user, persists the matching session
// record keyed by the credential's peppered hash, and returns the credential.
func (s *SessionService) StartSession(ctx context.Context, userID uint, idpAccessToken, idpRefreshToken string) (string, error) {
	credential, err := s.codec.Issue(userID, s.ttl)
	if err != nil {
		observability.RecordSessionManagementEvent(ctx, "start", "error")
		return "", fmt.Errorf("issue session credential: %w", err)
	}
	session := &domain.Session{
		UserID:          userID,
		TokenHash:       security.HashToken(credential, s.pepper),
		IDPAccessToken:  idpAccessToken,
		IDPRefreshToken: idpRefreshToken,
		ExpiresAt:       time.Now().UTC().Add(s.ttl),
	}
	if err := s.sessions.Create(session); err != nil {
		observability.RecordSessionManagementEvent(ctx, "start", "error")
		return "", fmt.Errorf("persist session: %w", err)
	}
	observability.RecordSessionManagementEvent(ctx, "start", "success")
	return credential, nil
}

// Validate checks the credential signature first, then requires a live
// server-side session bound to the same user. Both checks run on every call.
func (s *SessionService) Validate(ctx context.Context, credential string) (uint, error) {
	if strings.TrimSpace(credential) == "" {
		observability.RecordSessionManagementEvent(ctx, "validate", "invalid")
		return 0, ErrInvalidSession
	}
	userID, err := s.codec.Verify(credential)
	if err != nil {
		observability.RecordSessionManagementEvent(ctx, "validate", "invalid")
		return 0, ErrInvalidSession
	}
	session, err := s.sessions.FindByTokenHash(security.HashToken(credential, s.pepper))
	if err != nil {
		observability.RecordSessionManagementEvent(ctx, "validate", "invalid")
		return 0, ErrInvalidSession
	}
	if !session.ExpiresAt.After(time.Now().UTC()) || session.UserID != userID {
		observability.RecordSessionManagementEvent(ctx, "validate", "invalid")
		return 0, ErrInvalidSession
	}
	observability.RecordSessionManagementEvent(ctx, "validate", "success")
	return userID, nil
}

// Logout revokes the session behind one credential. Unknown credentials are
// revoked trivially, so logout never fails for the caller's benefit.
func (s *SessionService) Logout(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(security.HashToken(credential, s.pepper)); err != nil {
		observability.RecordSessionManagementEvent(ctx, "logout", "error")
		return fmt.Errorf("revoke session: %w", err)
	}
	observability.RecordSessionManagementEvent(ctx, "logout", "success")
	return nil
}

// LogoutAll revokes every session the user holds and reports how many fell.
func (s *SessionService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	revoked, err := s.sessions.DeleteByUserID(userID)
	if err != nil {
		observability.RecordSessionManagementEvent(ctx, "logout_all", "error")
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	observability.RecordSessionManagementEvent(ctx, "logout_all", "success")
	return revoked, nil
}

// SweepExpired drops sessions past their server-side expiry.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(time.Now().UTC())
	if err != nil {
		observability.RecordSessionManagementEvent(ctx, "sweep", "error")
		return 0, err
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "swept sessions", "removed", removed)
	}
	observability.RecordSessionManagementEvent(ctx, "sweep", "success")
	return removed, nil
}
