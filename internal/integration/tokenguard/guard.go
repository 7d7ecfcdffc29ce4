// Package tokenguard hands out usable provider credentials. An expired
// access token is refreshed and persisted before it is returned.
package tokenguard

import (
	"context"
	"fmt"
	"time"

	"privatezone-backend/internal/errs"
	"privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/repository"
	"privatezone-backend/pkg/gauth"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new access token. The provider
// clients in pkg/gmail, pkg/gcalendar and pkg/gtasks implement it.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*gauth.Token, error)
}

type Guard struct {
	repo       repository.CredentialRepository
	refreshers map[domain.Provider]Refresher
	coalesce   bool
	group      singleflight.Group
	now        func() time.Time
	logger     *zap.Logger
}

// New builds a guard. With coalesce set, concurrent refreshes of the same
// (user, provider) share one token request.
func New(repo repository.CredentialRepository, refreshers map[domain.Provider]Refresher, coalesce bool, logger *zap.Logger) *Guard {
	return &Guard{
		repo:       repo,
		refreshers: refreshers,
		coalesce:   coalesce,
		now:        time.Now,
		logger:     logger.Named("tokenguard"),
	}
}

// Credentials returns the active record for (userID, provider) with an
// access token that is valid now.
func (g *Guard) Credentials(ctx context.Context, userID string, provider domain.Provider) (*domain.CredentialRecord, error) {
	rec, err := g.repo.Get(ctx, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("load %s credentials: %w", provider, err)
	}
	if rec == nil || !rec.IsActive {
		return nil, errs.Auth(fmt.Sprintf("%s integration not found", provider), nil)
	}
	if !rec.Expired(g.now()) {
		return rec, nil
	}

	if !g.coalesce {
		return g.refresh(ctx, rec)
	}

	v, err, shared := g.group.Do(userID+":"+string(provider), func() (interface{}, error) {
		return g.refresh(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		g.logger.Debug("token refresh shared",
			zap.String("user_id", userID),
			zap.String("provider", string(provider)))
	}
	// Each caller gets its own copy.
	out := *v.(*domain.CredentialRecord)
	return &out, nil
}

func (g *Guard) refresh(ctx context.Context, rec *domain.CredentialRecord) (*domain.CredentialRecord, error) {
	log := g.logger.With(zap.String("user_id", rec.UserID), zap.String("provider", string(rec.Provider)))

	refresher, ok := g.refreshers[rec.Provider]
	if !ok {
		return nil, fmt.Errorf("no token refresher registered for %s", rec.Provider)
	}

	tok, err := refresher.RefreshAccessToken(ctx, rec.RefreshToken)
	if err != nil {
		log.Warn("token refresh failed", zap.Error(err))
		if errs.IsAuth(err) {
			return nil, err
		}
		return nil, errs.Auth(fmt.Sprintf("failed to refresh %s token", rec.Provider), err)
	}

	refreshed := *rec
	refreshed.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	refreshed.ExpiresAt = tok.ExpiresAt

	if err := g.repo.UpdateToken(ctx, rec.UserID, rec.Provider, refreshed.AccessToken, tok.RefreshToken, refreshed.ExpiresAt); err != nil {
		log.Error("persist refreshed token", zap.Error(err))
		return nil, fmt.Errorf("persist refreshed %s token: %w", rec.Provider, err)
	}

	log.Info("access token refreshed")
	return &refreshed, nil
}

// ClientCredentials converts a record into what provider clients take.
func ClientCredentials(rec *domain.CredentialRecord) gauth.Credentials {
	return gauth.Credentials{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
	}
}
