package usecase

import (
	"context"

	authdomain "privatezone-backend/internal/auth/domain"
	authdto "privatezone-backend/internal/auth/dto"
)

// AuthUsecase covers local accounts, sessions and push device registration.
type AuthUsecase interface {
	Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	// RefreshToken rotates the refresh token and issues a new pair.
	RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	// ValidateToken resolves an access token to its user.
	ValidateToken(ctx context.Context, accessToken string) (*authdomain.User, error)
	UpdateProfile(ctx context.Context, userID, name string) (*authdomain.User, error)

	RegisterFCMToken(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterFCMToken(ctx context.Context, userID, token string) error
}
