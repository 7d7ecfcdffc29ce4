package dto

import "time"

type ConnectResponse struct {
	URL string `json:"url"`
}

type StatusResponse struct {
	Provider    string     `json:"provider"`
	Connected   bool       `json:"connected"`
	Email       *string    `json:"email,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
	LastSynced  int        `json:"lastSyncedCount"`
}

// CallbackResult is what a successful OAuth callback resolved to.
type CallbackResult struct {
	UserID   string
	Provider string
	Email    string
}
