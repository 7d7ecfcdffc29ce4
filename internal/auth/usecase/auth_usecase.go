package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "privatezone-backend/internal/auth/domain"
	authdto "privatezone-backend/internal/auth/dto"
	"privatezone-backend/internal/auth/repository"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	errInvalidCredentials = errs.Auth("invalid email or password", nil)
	errEmailTaken         = fmt.Errorf("email %w", errs.ErrConflict)
)

type authUsecase struct {
	userRepo repository.UserRepository
	fcmRepo  repository.FCMTokenRepository
	config   *config.Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewAuthUsecase(userRepo repository.UserRepository, fcmRepo repository.FCMTokenRepository, cfg *config.Config, logger *zap.Logger) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		config:   cfg,
		now:      time.Now,
		logger:   logger.Named("auth"),
	}
}

func (u *authUsecase) Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, errInvalidCredentials
	}
	return u.generateTokens(ctx, user)
}

func (u *authUsecase) Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errEmailTaken
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errEmailTaken
		}
		return nil, err
	}
	u.logger.Info("user registered", zap.String("user_id", user.ID))

	return u.generateTokens(ctx, user)
}

func (u *authUsecase) RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error) {
	userID, err := u.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, errs.Auth("invalid refresh token", err)
	}

	stored, err := u.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.ExpiresAt.Before(u.now()) {
		return nil, errs.Auth("refresh token expired", nil)
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.Auth("user not found", nil)
	}

	if err := u.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return u.generateTokens(ctx, user)
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return u.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (u *authUsecase) ValidateToken(ctx context.Context, accessToken string) (*authdomain.User, error) {
	userID, err := u.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, errs.Auth("invalid token", err)
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.Auth("user not found", nil)
	}
	return user, nil
}

func (u *authUsecase) UpdateProfile(ctx context.Context, userID, name string) (*authdomain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.NotFound("user")
	}

	user.Name = name
	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	u.logger.Info("profile updated", zap.String("user_id", userID))
	return user, nil
}

func (u *authUsecase) RegisterFCMToken(ctx context.Context, userID, token, deviceInfo string) error {
	if strings.TrimSpace(token) == "" {
		return errs.Validation("token is required")
	}
	return u.fcmRepo.SaveToken(ctx, userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(ctx context.Context, userID, token string) error {
	deleted, err := u.fcmRepo.DeleteUserToken(ctx, userID, token)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.NotFound("fcm token")
	}
	return nil
}

func (u *authUsecase) generateTokens(ctx context.Context, user *authdomain.User) (*authdto.TokenResponse, error) {
	now := u.now()

	accessToken, err := u.sign(jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"type":    tokenTypeAccess,
		"exp":     now.Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(u.config.JWTRefreshExpiry)
	refreshToken, err := u.sign(jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"type":     tokenTypeRefresh,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	if err := u.userRepo.SaveRefreshToken(ctx, &authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: expiresAt.UTC(),
	}); err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.config.JWTSecret))
}

// parse verifies signature, expiry and token type and returns the user id.
func (u *authUsecase) parse(tokenString, wantType string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	if typ, _ := claims["type"].(string); typ != wantType {
		return "", errors.New("wrong token type")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("invalid token claims")
	}
	return userID, nil
}
