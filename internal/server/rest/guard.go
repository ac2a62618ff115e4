package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/server/auth"
	"github.com/dmitrijs2005/cmsauth/internal/server/metrics"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/policy"
	"github.com/gorilla/mux"
)

// Authenticator validates a bearer token against the certificate store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, scope auth.Scope) (*auth.Identity, error)
}

// Guard authenticates requests before they reach a handler. It only reads
// the certificate store.
type Guard struct {
	sessions Authenticator
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewGuard(sessions Authenticator, logger logging.Logger, mtr *metrics.Metrics) *Guard {
	return &Guard{sessions: sessions, logger: logger.With("module", "guard"), metrics: mtr}
}

// Require admits requests carrying a live token of scope whose audience is
// audience, and attaches the identity to the request context.
func (g *Guard) Require(scope auth.Scope, audience models.Audience) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.sessions.Authenticate(r.Context(), bearerToken(r), scope)
			if err == nil {
				err = policy.Check(identity.Audience, audience)
			}
			if err != nil {
				g.metrics.ObserveGuardRejection(rejectionReason(err))
				g.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "reason", rejectionReason(err))
				writeError(w, r, g.logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken returns the token of an "Authorization: Bearer ..." header,
// or "" when there is none.
func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(common.BearerPrefix):])
}

func rejectionReason(err error) string {
	var decodeErr *auth.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Kind.String()
	}
	return common.Kind(err)
}
