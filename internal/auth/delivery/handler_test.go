package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authdomain "privatezone-backend/internal/auth/domain"
	authdto "privatezone-backend/internal/auth/dto"
	"privatezone-backend/internal/auth/usecase"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthUsecase struct {
	usecase.AuthUsecase

	refreshed string
	loggedOut string
	fcmDevice string
	renamed   string
}

func (f *fakeAuthUsecase) UpdateProfile(_ context.Context, userID, name string) (*authdomain.User, error) {
	f.renamed = userID + ":" + name
	return &authdomain.User{ID: userID, Email: "ann@example.com", Name: name}, nil
}

func (f *fakeAuthUsecase) ValidateToken(_ context.Context, token string) (*authdomain.User, error) {
	if token != "good" {
		return nil, errs.Auth("invalid token", nil)
	}
	return &authdomain.User{ID: "u1", Email: "ann@example.com"}, nil
}

func (f *fakeAuthUsecase) Login(_ context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	return &authdto.TokenResponse{AccessToken: "good", RefreshToken: "r1", User: &authdomain.User{ID: "u1", Email: req.Email}}, nil
}

func (f *fakeAuthUsecase) RefreshToken(_ context.Context, token string) (*authdto.TokenResponse, error) {
	f.refreshed = token
	return &authdto.TokenResponse{AccessToken: "good", RefreshToken: "r2"}, nil
}

func (f *fakeAuthUsecase) Logout(_ context.Context, token string) error {
	f.loggedOut = token
	return nil
}

func (f *fakeAuthUsecase) RegisterFCMToken(_ context.Context, userID, token, _ string) error {
	f.fcmDevice = userID + ":" + token
	return nil
}

func newRouter(uc usecase.AuthUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(uc, &config.Config{JWTAccessExpiry: 15 * time.Minute, JWTRefreshExpiry: time.Hour})

	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/refresh", h.RefreshToken)
	r.POST("/api/auth/logout", h.Logout)
	r.GET("/api/auth/me", AuthMiddleware(uc), h.Me)
	r.PUT("/api/auth/me", AuthMiddleware(uc), h.UpdateMe)
	r.GET("/api/whoami", AuthMiddleware(uc), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID")+"|"+c.GetString("userEmail"))
	})
	r.POST("/api/fcm/register", AuthMiddleware(uc), h.RegisterFCMToken)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(&fakeAuthUsecase{})

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "bearer", header: "Bearer good", want: http.StatusOK},
		{name: "cookie", cookie: "good", want: http.StatusOK},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "malformed header", header: "Token good", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "u1|ann@example.com", w.Body.String())
			}
		})
	}
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	r := newRouter(&fakeAuthUsecase{})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ann@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, SessionCookie)
	assert.Equal(t, "good", cookies[SessionCookie].Value)
	assert.True(t, cookies[SessionCookie].HttpOnly)
	assert.Equal(t, "r1", cookies[refreshCookie].Value)
}

func TestRefresh_FallsBackToCookie(t *testing.T) {
	uc := &fakeAuthUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "r1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", uc.refreshed)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	uc := &fakeAuthUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", uc.loggedOut)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestRegisterFCMToken(t *testing.T) {
	uc := &fakeAuthUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/fcm/register", strings.NewReader(`{"token":"device-a"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1:device-a", uc.fcmDevice)
}

func TestUpdateMe(t *testing.T) {
	uc := &fakeAuthUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPut, "/api/auth/me", strings.NewReader(`{"name":"Ann Lee"}`))
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1:Ann Lee", uc.renamed)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"name":"Ann Lee"`)

	req = httptest.NewRequest(http.MethodPut, "/api/auth/me", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
