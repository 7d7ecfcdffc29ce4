package domain

import (
	"fmt"
	"time"
)

// Provider is the kind of third-party account a credential belongs to.
type Provider string

const (
	ProviderMail     Provider = "mail"
	ProviderCalendar Provider = "calendar"
	ProviderTasks    Provider = "tasks"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderMail, ProviderCalendar, ProviderTasks:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// CredentialRecord is the stored OAuth token pair of one user for one
// provider. Disconnecting only clears IsActive.
type CredentialRecord struct {
	ID           string     `json:"-" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"not null"`
	Provider     Provider   `json:"provider" gorm:"not null"`
	AccessToken  string     `json:"-" gorm:"not null"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	AccountEmail *string    `json:"account_email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (CredentialRecord) TableName() string { return "integration_credentials" }

// Expired reports whether the access token must be refreshed before use. A
// record without expiry is treated as valid.
func (c *CredentialRecord) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// SyncHistory keeps the outcome of the last sync per (user, provider) and,
// for mail, the last Gmail history id seen.
type SyncHistory struct {
	ID           string     `json:"-" gorm:"primaryKey"`
	UserID       string     `json:"-" gorm:"not null"`
	Provider     Provider   `json:"provider" gorm:"not null"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	SyncedCount  int        `json:"synced_count"`
	FetchedCount int        `json:"fetched_count"`
	FailedCount  int        `json:"failed_count"`
	HistoryID    uint64     `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

func (SyncHistory) TableName() string { return "sync_history" }

// SyncOutcome is what a finished sync reports back.
type SyncOutcome struct {
	Synced  int
	Fetched int
	Failed  int
}
