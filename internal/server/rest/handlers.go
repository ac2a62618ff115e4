// Package rest is the HTTP surface of the auth core: login, refresh and
// logout per audience, plus a few guarded inspection routes.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/netx"
	"github.com/dmitrijs2005/cmsauth/internal/server/auth"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/services"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// SessionManager is the part of services.SessionService the handlers use.
type SessionManager interface {
	Authenticator
	Login(ctx context.Context, audience models.Audience, name, password string, client services.ClientInfo) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, jti uuid.UUID) error
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
	Sessions(ctx context.Context, userID uuid.UUID) ([]services.Session, error)
}

type Handler struct {
	sessions SessionManager
	proxies  *netx.Proxies
	logger   logging.Logger
}

// NewHandler serves the session endpoints. proxies may be nil, in which
// case X-Forwarded-For is never believed.
func NewHandler(sessions SessionManager, proxies *netx.Proxies, logger logging.Logger) *Handler {
	return &Handler{sessions: sessions, proxies: proxies, logger: logger.With("module", "rest")}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /{manage,open}/login/password for one audience.
func (h *Handler) Login(audience models.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, h.logger, errBadRequest)
			return
		}

		client := services.ClientInfo{UserAgent: r.UserAgent(), IP: clientIP(r, h.proxies)}
		pair, err := h.sessions.Login(r.Context(), audience, req.Username, req.Password, client)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// Refresh handles PATCH /{manage,open}/login behind the refresh guard.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.sessions.Refresh(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles DELETE /{manage,open}/login behind the access guard.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.sessions.Logout(r.Context(), id.JTI); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// Me returns the identity attached by the guard.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// ListSessions returns the caller's live pairs without token strings.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	sessions, err := h.sessions.Sessions(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

type revokeResponse struct {
	Revoked int64 `json:"revoked"`
}

// RevokeSessions drops every pair of the caller, the current one included.
func (h *Handler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	n, err := h.sessions.RevokeAll(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, revokeResponse{Revoked: n})
}

// identity reads the guard's identity. Its absence means a route was wired
// without a guard.
func identity(w http.ResponseWriter, r *http.Request, logger logging.Logger) (*auth.Identity, bool) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, r, logger, errors.New("no identity on guarded route"))
		return nil, false
	}
	return id, true
}
