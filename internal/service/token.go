package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/repository"
	"github.com/sgst/sgst-api/internal/utils"
)

// TokenConfig holds the signing secret and the lifetimes of both tokens.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues, verifies, rotates and revokes session tokens.  Access
// tokens are verified statelessly; refresh tokens are single-use rows in the
// session store.
type TokenService struct {
	users    UserStore
	sessions SessionStore
	cfg      TokenConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewTokenService(users UserStore, sessions SessionStore, cfg TokenConfig, logger *slog.Logger) *TokenService {
	return &TokenService{users: users, sessions: sessions, cfg: cfg, logger: logger, now: time.Now}
}

// Issue mints an access token for u and persists a new refresh session.
func (s *TokenService) Issue(ctx context.Context, u model.User) (TokenPair, error) {
	pair, err := s.mint(u)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Refresh consumes refreshToken and returns a new pair for the same user.
// A token that is empty, unknown, already used or expired yields
// ErrInvalidSession.  Of two concurrent calls with one token, one fails.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidSession
	}
	var pair TokenPair
	err := s.sessions.Rotate(ctx, utils.HashRefreshRaw(refreshToken), s.now().UTC(),
		func(userID uint64) (repository.NewSession, error) {
			u, err := s.users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return repository.NewSession{}, ErrInvalidSession
				}
				return repository.NewSession{}, err
			}
			if !u.IsActive {
				return repository.NewSession{}, ErrInvalidSession
			}
			if pair, err = s.mint(u); err != nil {
				return repository.NewSession{}, err
			}
			return repository.NewSession{
				TokenHash: utils.HashRefreshRaw(pair.RefreshToken),
				ExpiresAt: pair.RefreshExpiresAt,
			}, nil
		})
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, repository.ErrSessionNotFound), errors.Is(err, repository.ErrSessionExpired):
		s.logger.Debug("refresh token rejected", "reason", err.Error())
		return TokenPair{}, ErrInvalidSession
	default:
		return TokenPair{}, err
	}
}

// Verify checks signature and expiry of an access token and returns the
// tagged principal.  It never touches the store.
func (s *TokenService) Verify(accessToken string) (model.Principal, error) {
	if accessToken == "" {
		return model.Principal{}, ErrInvalidSession
	}
	claims, err := utils.ParseAccessToken(s.cfg.Secret, accessToken)
	if err != nil {
		return model.Principal{}, ErrInvalidSession
	}
	p := model.NewPrincipal(claims.UserID, claims.CompanyID)
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Revoke deletes the refresh session if it still exists.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.DeleteByHash(ctx, utils.HashRefreshRaw(refreshToken))
}

func (s *TokenService) mint(u model.User) (TokenPair, error) {
	at, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.CompanyID, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:      at.Token,
		AccessExpiresAt:  at.Exp,
		RefreshToken:     rt.Raw,
		RefreshExpiresAt: rt.Exp,
	}, nil
}
