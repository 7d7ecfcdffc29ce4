package repository

import (
	"context"
	"errors"
	"time"

	"privatezone-backend/internal/integration/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.CredentialRecord, error) {
	var rec domain.CredentialRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, rec *domain.CredentialRecord) error {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	updates := clause.AssignmentColumns([]string{"access_token", "expires_at", "is_active", "updated_at"})
	// Google omits the refresh token on some re-consents; keep the stored one then.
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "refresh_token"},
		Value:  gorm.Expr("COALESCE(NULLIF(EXCLUDED.refresh_token, ''), integration_credentials.refresh_token)"),
	})
	// A failed userinfo lookup must not erase the address push lookups rely on.
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "account_email"},
		Value:  gorm.Expr("COALESCE(EXCLUDED.account_email, integration_credentials.account_email)"),
	})

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: updates,
	}).Create(rec).Error
}

func (r *credentialRepository) Deactivate(ctx context.Context, userID string, provider domain.Provider) error {
	return r.db.WithContext(ctx).Model(&domain.CredentialRecord{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *credentialRepository) UpdateToken(ctx context.Context, userID string, provider domain.Provider, accessToken, refreshToken string, expiresAt *time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
		"updated_at":   time.Now().UTC(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}

	res := r.db.WithContext(ctx).Model(&domain.CredentialRecord{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *credentialRepository) FindActiveByAccountEmail(ctx context.Context, provider domain.Provider, email string) (*domain.CredentialRecord, error) {
	var rec domain.CredentialRecord
	err := r.db.WithContext(ctx).
		Where("provider = ? AND LOWER(account_email) = LOWER(?) AND is_active = ?", provider, email, true).
		Order("updated_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

type syncHistoryRepository struct {
	db *gorm.DB
}

func NewSyncHistoryRepository(db *gorm.DB) SyncHistoryRepository {
	return &syncHistoryRepository{db: db}
}

func (r *syncHistoryRepository) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.SyncHistory, error) {
	var h domain.SyncHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *syncHistoryRepository) RecordSync(ctx context.Context, userID string, provider domain.Provider, outcome domain.SyncOutcome, at time.Time) error {
	at = at.UTC()
	h := &domain.SyncHistory{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     provider,
		LastSyncedAt: &at,
		SyncedCount:  outcome.Synced,
		FetchedCount: outcome.Fetched,
		FailedCount:  outcome.Failed,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "synced_count", "fetched_count", "failed_count", "updated_at"}),
	}).Create(h).Error
}

func (r *syncHistoryRepository) AdvanceHistoryID(ctx context.Context, userID string, provider domain.Provider, historyID uint64) (bool, error) {
	now := time.Now().UTC()
	h := &domain.SyncHistory{
		ID:        uuid.New().String(),
		UserID:    userID,
		Provider:  provider,
		HistoryID: historyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"history_id", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "sync_history.history_id < EXCLUDED.history_id"},
		}},
	}).Create(h)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
