package usecase

import (
	"context"

	"privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/dto"
	"privatezone-backend/pkg/gauth"

	"google.golang.org/api/option"
)

// IntegrationUsecase drives the OAuth connect flow and the lifecycle of the
// stored provider credentials.
type IntegrationUsecase interface {
	// ConnectURL returns the Google consent URL for provider. The state
	// parameter binds the callback to userID.
	ConnectURL(ctx context.Context, userID string, provider domain.Provider) (string, error)

	// HandleCallback exchanges the authorization code and stores the
	// resulting credential as active.
	HandleCallback(ctx context.Context, code, state string) (*dto.CallbackResult, error)

	Status(ctx context.Context, userID string, provider domain.Provider) (*dto.StatusResponse, error)

	// Disconnect deactivates the credential. It is not deleted.
	Disconnect(ctx context.Context, userID string, provider domain.Provider) error

	// Test obtains valid credentials and runs a cheap provider call.
	Test(ctx context.Context, userID string, provider domain.Provider) error
}

// Connector is the OAuth side of a provider. *gauth.OAuth implements it.
type Connector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*gauth.Token, error)
	UserEmail(ctx context.Context, creds gauth.Credentials, opts ...option.ClientOption) (string, error)
}

// Prober makes one inexpensive authenticated call to the provider.
type Prober func(ctx context.Context, creds gauth.Credentials) error

type ProviderBinding struct {
	Connector Connector
	Probe     Prober
}

// CredentialSource is satisfied by *tokenguard.Guard.
type CredentialSource interface {
	Credentials(ctx context.Context, userID string, provider domain.Provider) (*domain.CredentialRecord, error)
}
