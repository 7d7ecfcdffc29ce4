package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"privatezone-backend/internal/errs"
	"privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/dto"
	"privatezone-backend/internal/integration/repository"
	"privatezone-backend/internal/integration/tokenguard"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	statePurpose = "integration"
	stateTTL     = 10 * time.Minute
)

type integrationUsecase struct {
	creds     repository.CredentialRepository
	history   repository.SyncHistoryRepository
	guard     CredentialSource
	providers map[domain.Provider]ProviderBinding
	jwtSecret []byte
	logger    *zap.Logger
}

func NewIntegrationUsecase(
	creds repository.CredentialRepository,
	history repository.SyncHistoryRepository,
	guard CredentialSource,
	providers map[domain.Provider]ProviderBinding,
	jwtSecret string,
	logger *zap.Logger,
) IntegrationUsecase {
	return &integrationUsecase{
		creds:     creds,
		history:   history,
		guard:     guard,
		providers: providers,
		jwtSecret: []byte(jwtSecret),
		logger:    logger.Named("integration"),
	}
}

func (u *integrationUsecase) binding(provider domain.Provider) (ProviderBinding, error) {
	b, ok := u.providers[provider]
	if !ok || b.Connector == nil {
		return ProviderBinding{}, errs.Validation("provider %s is not configured", provider)
	}
	return b, nil
}

func (u *integrationUsecase) ConnectURL(ctx context.Context, userID string, provider domain.Provider) (string, error) {
	b, err := u.binding(provider)
	if err != nil {
		return "", err
	}

	now := time.Now()
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"provider": string(provider),
		"purpose":  statePurpose,
		"exp":      now.Add(stateTTL).Unix(),
		"iat":      now.Unix(),
	}).SignedString(u.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}

	return b.Connector.AuthCodeURL(state), nil
}

func (u *integrationUsecase) parseState(state string) (string, domain.Provider, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		return u.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", "", errs.Auth("invalid or expired oauth state", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != statePurpose {
		return "", "", errs.Auth("invalid oauth state", nil)
	}

	userID, _ := claims["user_id"].(string)
	rawProvider, _ := claims["provider"].(string)
	provider, err := domain.ParseProvider(rawProvider)
	if userID == "" || err != nil {
		return "", "", errs.Auth("invalid oauth state", err)
	}
	return userID, provider, nil
}

func (u *integrationUsecase) HandleCallback(ctx context.Context, code, state string) (*dto.CallbackResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errs.Validation("authorization code is required")
	}

	userID, provider, err := u.parseState(state)
	if err != nil {
		return nil, err
	}

	b, err := u.binding(provider)
	if err != nil {
		return nil, err
	}

	log := u.logger.With(zap.String("user_id", userID), zap.String("provider", string(provider)))

	tok, err := b.Connector.Exchange(ctx, code)
	if err != nil {
		log.Warn("code exchange failed", zap.Error(err))
		return nil, err
	}

	rec := &domain.CredentialRecord{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
		IsActive:     true,
	}

	// The account email is informational; a failed lookup does not block the
	// connection.
	email, err := b.Connector.UserEmail(ctx, tokenguard.ClientCredentials(rec))
	if err != nil {
		log.Warn("account email lookup failed", zap.Error(err))
	} else if email != "" {
		rec.AccountEmail = &email
	}

	if err := u.creds.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store %s credentials: %w", provider, err)
	}

	log.Info("integration connected", zap.String("account_email", email))
	return &dto.CallbackResult{UserID: userID, Provider: string(provider), Email: email}, nil
}

func (u *integrationUsecase) Status(ctx context.Context, userID string, provider domain.Provider) (*dto.StatusResponse, error) {
	rec, err := u.creds.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	resp := &dto.StatusResponse{Provider: string(provider)}
	if rec == nil || !rec.IsActive {
		return resp, nil
	}

	resp.Connected = true
	resp.Email = rec.AccountEmail
	resp.ExpiresAt = rec.ExpiresAt
	connectedAt := rec.CreatedAt
	resp.ConnectedAt = &connectedAt

	h, err := u.history.Get(ctx, userID, provider)
	if err != nil {
		u.logger.Warn("load sync history", zap.String("user_id", userID), zap.Error(err))
	} else if h != nil {
		resp.LastSyncAt = h.LastSyncedAt
		resp.LastSynced = h.SyncedCount
	}
	return resp, nil
}

func (u *integrationUsecase) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	rec, err := u.creds.Get(ctx, userID, provider)
	if err != nil {
		return err
	}
	if rec == nil || !rec.IsActive {
		return errs.NotFound(string(provider) + " integration")
	}

	if err := u.creds.Deactivate(ctx, userID, provider); err != nil {
		return fmt.Errorf("deactivate %s credentials: %w", provider, err)
	}
	u.logger.Info("integration disconnected", zap.String("user_id", userID), zap.String("provider", string(provider)))
	return nil
}

func (u *integrationUsecase) Test(ctx context.Context, userID string, provider domain.Provider) error {
	b, err := u.binding(provider)
	if err != nil {
		return err
	}

	rec, err := u.guard.Credentials(ctx, userID, provider)
	if err != nil {
		return err
	}
	if b.Probe == nil {
		return nil
	}
	return b.Probe(ctx, tokenguard.ClientCredentials(rec))
}
