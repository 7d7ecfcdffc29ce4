package repository

import (
	"context"
	"time"

	"privatezone-backend/internal/integration/domain"
)

// CredentialRepository is the credential store. Every lookup is keyed by
// (userID, provider).
type CredentialRepository interface {
	// Get returns the record regardless of IsActive, nil when absent.
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.CredentialRecord, error)
	// Upsert inserts or replaces the record for (UserID, Provider).
	Upsert(ctx context.Context, rec *domain.CredentialRecord) error
	// Deactivate flips IsActive off. Tokens are kept.
	Deactivate(ctx context.Context, userID string, provider domain.Provider) error
	UpdateToken(ctx context.Context, userID string, provider domain.Provider, accessToken, refreshToken string, expiresAt *time.Time) error
	FindActiveByAccountEmail(ctx context.Context, provider domain.Provider, email string) (*domain.CredentialRecord, error)
}

type SyncHistoryRepository interface {
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.SyncHistory, error)
	// RecordSync stores the outcome of a finished sync.
	RecordSync(ctx context.Context, userID string, provider domain.Provider, outcome domain.SyncOutcome, at time.Time) error
	// AdvanceHistoryID stores historyID if it is newer than the stored one and
	// reports whether it was.
	AdvanceHistoryID(ctx context.Context, userID string, provider domain.Provider, historyID uint64) (bool, error)
}
