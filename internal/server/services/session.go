// Package services contains the server-side business logic. SessionService
// issues, validates, rotates and revokes access/refresh pairs.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/cryptox"
	"github.com/dmitrijs2005/cmsauth/internal/dbx"
	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/server/auth"
	"github.com/dmitrijs2005/cmsauth/internal/server/config"
	"github.com/dmitrijs2005/cmsauth/internal/server/metrics"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/users"
	"github.com/google/uuid"
)

// TokenPair is the login and refresh response. Expiry times are unix
// seconds.
type TokenPair struct {
	AccessToken      string          `json:"access_token"`
	AccessExpiredAt  int64           `json:"access_expired_at"`
	RefreshToken     string          `json:"refresh_token"`
	RefreshExpiredAt int64           `json:"refresh_expired_at"`
	Identity         IdentitySummary `json:"identity"`
}

// IdentitySummary describes who the pair was issued to. Names are only
// known at login.
type IdentitySummary struct {
	UserID      uuid.UUID       `json:"user_id"`
	UserName    string          `json:"username,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Audience    models.Audience `json:"audience"`
}

// ClientInfo is the audit data captured from the login request.
type ClientInfo struct {
	UserAgent string
	IP        string
}

type SessionService struct {
	users   users.Repository
	certs   certificates.Repository
	codec   *auth.Codec
	hasher  *cryptox.Hasher
	clock   clockx.Clock
	logger  logging.Logger
	metrics *metrics.Metrics

	accessTTL  time.Duration
	refreshTTL time.Duration
	lockout    users.Lockout
	dbTimeout  time.Duration

	newJTI    func() uuid.UUID
	decoySalt []byte
}

// NewSessionService wires the service to the repositories of m. The key and
// TTLs are taken from cfg, which is expected to be validated already.
func NewSessionService(m repomanager.RepositoryManager, cfg *config.Config, clock clockx.Clock, logger logging.Logger, mtr *metrics.Metrics) *SessionService {
	return &SessionService{
		users:      m.Users(),
		certs:      m.Certificates(),
		codec:      auth.NewCodec([]byte(cfg.SecretKey), clock),
		hasher:     cryptox.NewHasher(cfg.Argon2Params()),
		clock:      clock,
		logger:     logger.With("module", "session"),
		metrics:    mtr,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		lockout:    users.Lockout{MaxAttempts: cfg.MaxAttempts, Window: cfg.LockoutWindow},
		dbTimeout:  cfg.DBTimeout,
		newJTI:     clockx.NewUUID,
		decoySalt:  make([]byte, cryptox.MinSaltLength),
	}
}

// Login authenticates name/password within audience and issues a new pair.
// A missing, disabled or deleted user and a wrong password all yield
// common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, audience models.Audience, name, password string, client ClientInfo) (*TokenPair, error) {
	pair, err := s.login(ctx, audience, name, password, client)
	s.metrics.ObserveLogin(audience.String(), common.Kind(err))
	return pair, err
}

func (s *SessionService) login(ctx context.Context, audience models.Audience, name, password string, client ClientInfo) (*TokenPair, error) {
	if _, err := models.ParseAudience(string(audience)); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, name, audience)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// spend the same hashing time as a real verification
			_, _ = s.hasher.Hash([]byte(password), s.decoySalt)
			s.logger.Info(ctx, "login failed", "audience", audience, "reason", "unknown user")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := s.clock.Now()

	// counted before Verify; a locked account never reaches the hasher
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.RecordAttempt(ctx, user.ID, now, s.lockout)
	}); err != nil {
		switch {
		case errors.Is(err, common.ErrAccountLocked):
			s.logger.Warn(ctx, "login rejected, account locked", "user_id", user.ID, "audience", audience)
			return nil, common.ErrAccountLocked
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrInvalidCredentials
		default:
			return nil, fmt.Errorf("record attempt: %w", err)
		}
	}

	if !s.hasher.Verify([]byte(password), user.Salt, user.PasswordHash) {
		s.logger.Info(ctx, "login failed", "user_id", user.ID, "audience", audience, "reason", "wrong password")
		return nil, common.ErrInvalidCredentials
	}

	cert, err := s.issue(ctx, user.ID, audience, now, client)
	if err != nil {
		return nil, err
	}

	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.RecordSuccessfulLogin(ctx, user.ID, now, cert.UUID)
	}); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID, "audience", audience, "jti", cert.UUID)

	pair := newTokenPair(cert)
	pair.Identity.UserName = user.UserName
	pair.Identity.DisplayName = user.DisplayName
	return pair, nil
}

func (s *SessionService) findUser(ctx context.Context, name string, audience models.Audience) (*models.User, error) {
	if name == "" {
		return nil, common.ErrorNotFound
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.users.FindByLogin(ctx, name, audience)
}

// issue mints and stores a fresh pair, regenerating the jti on the rare
// duplicate-key conflict.
func (s *SessionService) issue(ctx context.Context, userID uuid.UUID, audience models.Audience, now time.Time, client ClientInfo) (*models.Certificate, error) {
	for attempt := 0; attempt < common.MaxJTIAttempts; attempt++ {
		cert, err := s.mint(userID, audience, now, client)
		if err != nil {
			return nil, err
		}

		err = s.withTimeout(ctx, func(ctx context.Context) error {
			return s.certs.Insert(ctx, cert)
		})
		if err == nil {
			return cert, nil
		}
		if !errors.Is(err, common.ErrDuplicateJTI) {
			return nil, fmt.Errorf("insert certificate: %w", err)
		}
		s.logger.Warn(ctx, "duplicate jti, regenerating", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("insert certificate: %w", common.ErrDuplicateJTI)
}

// mint encodes both tokens of a new pair under one jti.
func (s *SessionService) mint(userID uuid.UUID, audience models.Audience, now time.Time, client ClientInfo) (*models.Certificate, error) {
	jti := s.newJTI()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	access, err := s.codec.Encode(auth.NewClaims(jti, userID, audience, auth.ScopeAccess, now, accessExp))
	if err != nil {
		return nil, fmt.Errorf("encode access token: %w", err)
	}
	refresh, err := s.codec.Encode(auth.NewClaims(jti, userID, audience, auth.ScopeRefresh, now, refreshExp))
	if err != nil {
		return nil, fmt.Errorf("encode refresh token: %w", err)
	}

	return &models.Certificate{
		UUID:             jti,
		Audience:         audience,
		UserID:           userID,
		AccessToken:      access,
		AccessExpiredAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiredAt: refreshExp,
		UserAgent:        client.UserAgent,
		ClientIP:         client.IP,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Refresh rotates the pair identified by refreshToken. The old pair stops
// working for both scopes. Of two concurrent refreshes with the same token
// exactly one succeeds; the other gets common.ErrRevoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	s.metrics.ObserveRefresh(common.Kind(err))
	return pair, err
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.DecodeScoped(refreshToken, auth.ScopeRefresh)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	old, err := s.findCertificate(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !old.IsLive(now) {
		return nil, common.ErrTokenExpired
	}
	if old.RefreshToken != refreshToken {
		return nil, common.ErrRevoked
	}

	client := ClientInfo{UserAgent: old.UserAgent, IP: old.ClientIP}

	for attempt := 0; attempt < common.MaxJTIAttempts; attempt++ {
		next, err := s.mint(old.UserID, old.Audience, now, client)
		if err != nil {
			return nil, err
		}

		err = s.withTimeout(ctx, func(ctx context.Context) error {
			return s.certs.Rotate(ctx, old.UUID, next, now)
		})
		switch {
		case err == nil:
			s.logger.Info(ctx, "session refreshed", "user_id", old.UserID, "audience", old.Audience, "jti", next.UUID)
			return newTokenPair(next), nil
		case errors.Is(err, common.ErrorNotFound):
			s.logger.Warn(ctx, "refresh lost rotation", "user_id", old.UserID, "jti", old.UUID)
			return nil, common.ErrRevoked
		case errors.Is(err, common.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, common.ErrDuplicateJTI):
			s.logger.Warn(ctx, "duplicate jti, regenerating", "attempt", attempt+1)
		default:
			return nil, fmt.Errorf("rotate certificate: %w", err)
		}
	}
	return nil, fmt.Errorf("rotate certificate: %w", common.ErrDuplicateJTI)
}

// Authenticate validates token for scope against the store and returns the
// identity it carries. It never writes to the store.
func (s *SessionService) Authenticate(ctx context.Context, token string, scope auth.Scope) (*auth.Identity, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	claims, err := s.codec.DecodeScoped(token, scope)
	if err != nil {
		return nil, err
	}

	cert, err := s.findCertificate(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	stored := cert.AccessToken
	if scope == auth.ScopeRefresh {
		stored = cert.RefreshToken
	}
	if stored != token {
		return nil, common.ErrRevoked
	}

	return &auth.Identity{UserID: claims.Subject, Audience: claims.Audience, JTI: claims.ID}, nil
}

func (s *SessionService) findCertificate(ctx context.Context, jti uuid.UUID) (*models.Certificate, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	cert, err := s.certs.FindByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRevoked
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

// Logout drops the pair identified by jti. Unknown jtis are not an error.
func (s *SessionService) Logout(ctx context.Context, jti uuid.UUID) error {
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.certs.DeleteByJTI(ctx, jti)
	}); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	s.metrics.ObserveLogout()
	s.logger.Info(ctx, "logged out", "jti", jti)
	return nil
}

// RevokeAll drops every pair issued to userID and returns how many there
// were.
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.certs.DeleteByUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete certificates: %w", err)
	}
	s.logger.Info(ctx, "revoked all sessions", "user_id", userID, "count", n)
	return n, nil
}

// Session is the public view of a stored pair, without the token strings.
type Session struct {
	JTI              uuid.UUID       `json:"jti"`
	Audience         models.Audience `json:"audience"`
	UserAgent        string          `json:"user_agent"`
	ClientIP         string          `json:"client_ip"`
	CreatedAt        int64           `json:"created_at"`
	AccessExpiredAt  int64           `json:"access_expired_at"`
	RefreshExpiredAt int64           `json:"refresh_expired_at"`
}

// Sessions lists the live pairs of userID, oldest first.
func (s *SessionService) Sessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	certs, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	now := s.clock.Now()
	out := make([]Session, 0, len(certs))
	for _, c := range certs {
		if !c.IsLive(now) {
			continue
		}
		out = append(out, Session{
			JTI:              c.UUID,
			Audience:         c.Audience,
			UserAgent:        c.UserAgent,
			ClientIP:         c.ClientIP,
			CreatedAt:        c.CreatedAt.Unix(),
			AccessExpiredAt:  c.AccessExpiredAt.Unix(),
			RefreshExpiredAt: c.RefreshExpiredAt.Unix(),
		})
	}
	return out, nil
}

func (s *SessionService) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return fn(ctx)
}

func newTokenPair(c *models.Certificate) *TokenPair {
	return &TokenPair{
		AccessToken:      c.AccessToken,
		AccessExpiredAt:  c.AccessExpiredAt.Unix(),
		RefreshToken:     c.RefreshToken,
		RefreshExpiredAt: c.RefreshExpiredAt.Unix(),
		Identity: IdentitySummary{
			UserID:   c.UserID,
			Audience: c.Audience,
		},
	}
}
