package delivery

import (
	"errors"
	"io"
	"net/http"
	"time"

	authdto "privatezone-backend/internal/auth/dto"
	"privatezone-backend/internal/auth/usecase"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/config"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	secure      bool
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		secure:      cfg.Env == "production",
		accessTTL:   cfg.JWTAccessExpiry,
		refreshTTL:  cfg.JWTRefreshExpiry,
	}
}

func (h *AuthHandler) setSession(c *gin.Context, tokens *authdto.TokenResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, tokens.AccessToken, int(h.accessTTL.Seconds()), "/", "", h.secure, true)
	c.SetCookie(refreshCookie, tokens.RefreshToken, int(h.refreshTTL.Seconds()), "/api/auth", "", h.secure, true)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secure, true)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", h.secure, true)
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req authdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	tokens, err := h.authUsecase.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, tokens)
	c.JSON(http.StatusCreated, tokens)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req authdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	tokens, err := h.authUsecase.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, tokens)
	c.JSON(http.StatusOK, tokens)
}

// refreshTokenFrom prefers the body and falls back to the cookie.
func refreshTokenFrom(c *gin.Context) (string, error) {
	var req authdto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", errs.Validation("%s", err.Error())
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	cookie, _ := c.Cookie(refreshCookie)
	return cookie, nil
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := refreshTokenFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if token == "" {
		response.Error(c, errs.Auth("refresh token required", nil))
		return
	}

	tokens, err := h.authUsecase.RefreshToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, tokens)
	c.JSON(http.StatusOK, tokens)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := refreshTokenFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authUsecase.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	h.clearSession(c)
	response.OK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		response.Error(c, errs.Auth("authorization required", nil))
		return
	}
	c.JSON(http.StatusOK, user)
}

// PUT /api/auth/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req authdto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	user, err := h.authUsecase.UpdateProfile(c.Request.Context(), c.GetString("userID"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"user": user})
}

// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.FCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.authUsecase.RegisterFCMToken(c.Request.Context(), c.GetString("userID"), req.Token, req.DeviceInfo); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "FCM token registered"})
}

// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.authUsecase.UnregisterFCMToken(c.Request.Context(), c.GetString("userID"), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "FCM token removed"})
}
