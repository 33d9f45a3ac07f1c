package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"clinic-federation-service/internal/http/middleware"
	"clinic-federation-service/internal/http/response"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/security"
	"clinic-federation-service/internal/service"
)

type AuthHandler struct {
	sessionSvc  *service.SessionService
	exchangeSvc *service.ExchangeTokenService
	cookies     *security.CookieManager
}

func NewAuthHandler(sessionSvc *service.SessionService, exchangeSvc *service.ExchangeTokenService, cookies *security.CookieManager) *AuthHandler {
	return &AuthHandler{
		sessionSvc:  sessionSvc,
		exchangeSvc: exchangeSvc,
		cookies:     cookies,
	}
}

// Handoff completes an IdP callback: a session is started for the user and a
// one-time exchange token is minted so the browser can pick the credential up
// on the target application without the credential ever touching a URL.
func (h *AuthHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          uint   `json:"user_id"`
		IDPAccessToken  string `json:"idp_access_token"`
		IDPRefreshToken string `json:"idp_refresh_token"`
		RedirectBaseURL string `json:"redirect_base_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if req.UserID == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}
	redirectBase := strings.TrimSpace(req.RedirectBaseURL)
	if redirectBase == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "redirect_base_url is required", nil)
		return
	}

	credential, err := h.sessionSvc.StartSession(r.Context(), req.UserID, req.IDPAccessToken, req.IDPRefreshToken)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to start session", nil)
		return
	}
	rawToken, err := h.exchangeSvc.GenerateTempToken(r.Context(), credential, req.UserID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to mint exchange token", nil)
		return
	}

	redirectURL := fmt.Sprintf("%s?exchange_token=%s", strings.TrimSuffix(redirectBase, "/"), url.QueryEscape(rawToken))

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.handoff",
		ActorUserID: observability.ActorUserID(req.UserID),
		TargetType:  "session",
		TargetID:    "new",
		Action:      "handoff",
		Outcome:     "success",
		Reason:      "session_started",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"redirect_url": redirectURL,
	})
}

// Exchange redeems a one-time token for the session credential, returning it
// in the body and as an HTTP-only cookie.
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	credential, err := h.exchangeSvc.Exchange(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrExchangeTokenNotFound) {
			response.Error(w, r, http.StatusNotFound, "INVALID_OR_EXPIRED_TOKEN", "exchange token is invalid, expired, or already used", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to exchange token", nil)
		return
	}

	userID, err := h.sessionSvc.Validate(r.Context(), credential)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "INVALID_OR_EXPIRED_TOKEN", "exchange token is invalid, expired, or already used", nil)
		return
	}

	h.cookies.SetSessionCookie(w, credential, h.sessionSvc.TTL())

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.exchange",
		ActorUserID: observability.ActorUserID(userID),
		TargetType:  "exchange_token",
		TargetID:    "redeemed",
		Action:      "exchange",
		Outcome:     "success",
		Reason:      "token_redeemed",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"session_token": credential,
		"user_id":       userID,
	})
}

// Logout revokes the calling session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	credential := middleware.CredentialFromRequest(r)
	if err := h.sessionSvc.Logout(r.Context(), credential); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to log out", nil)
		return
	}
	h.cookies.ClearSessionCookie(w)

	userID, _ := middleware.UserIDFromContext(r.Context())
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.logout",
		ActorUserID: observability.ActorUserID(userID),
		TargetType:  "session",
		TargetID:    "self",
		Action:      "logout",
		Outcome:     "success",
		Reason:      "session_revoked",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

// LogoutAll revokes every session of the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	revoked, err := h.sessionSvc.LogoutAll(r.Context(), userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to revoke sessions", nil)
		return
	}
	h.cookies.ClearSessionCookie(w)

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.logout.all",
		ActorUserID: observability.ActorUserID(userID),
		TargetType:  "session",
		TargetID:    "all",
		Action:      "logout_all",
		Outcome:     "success",
		Reason:      "bulk_revoke",
	}, "revoked_count", revoked)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked_count": revoked})
}
