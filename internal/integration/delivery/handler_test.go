package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"privatezone-backend/internal/errs"
	"privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/dto"
	"privatezone-backend/internal/integration/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntegrationUsecase struct {
	callbackErr error
	testErr     error
}

var _ usecase.IntegrationUsecase = (*fakeIntegrationUsecase)(nil)

func (f *fakeIntegrationUsecase) ConnectURL(_ context.Context, userID string, provider domain.Provider) (string, error) {
	return "https://consent/" + string(provider) + "?u=" + userID, nil
}

func (f *fakeIntegrationUsecase) HandleCallback(context.Context, string, string) (*dto.CallbackResult, error) {
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	return &dto.CallbackResult{UserID: "u1", Provider: "calendar"}, nil
}

func (f *fakeIntegrationUsecase) Status(_ context.Context, _ string, provider domain.Provider) (*dto.StatusResponse, error) {
	return &dto.StatusResponse{Provider: string(provider), Connected: true}, nil
}

func (f *fakeIntegrationUsecase) Disconnect(context.Context, string, domain.Provider) error {
	return nil
}

func (f *fakeIntegrationUsecase) Test(context.Context, string, domain.Provider) error {
	return f.testErr
}

func newRouter(uc usecase.IntegrationUsecase, frontend string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIntegrationHandler(uc, frontend)
	withUser := func(c *gin.Context) { c.Set("userID", "u1") }

	r.GET("/api/integrations/callback", h.Callback)
	r.GET("/api/integrations/:provider/connect", withUser, h.Connect)
	r.GET("/api/integrations/:provider/status", withUser, h.Status)
	r.GET("/api/integrations/:provider/test", withUser, h.Test)
	return r
}

func TestConnect(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/mail/connect", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://consent/mail?u=u1", body["url"])
}

func TestConnect_UnknownProvider(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/dropbox/connect", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_RedirectsToFrontend(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{}, "https://app.example.com")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/callback?code=c&state=s", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://app.example.com/?connected=calendar", w.Header().Get("Location"))
}

func TestCallback_ErrorWithoutFrontendIsJSON(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{callbackErr: errs.Auth("invalid oauth state", nil)}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/callback?code=c&state=bad", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid oauth state")
}

func TestTest_RemoteFailureCarriesProviderStatus(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{testErr: errs.Remote("gmail", http.StatusTooManyRequests, assert.AnError)}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/mail/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusTooManyRequests), body["providerStatus"])
}

func TestStatus_UsesEnvelope(t *testing.T) {
	r := newRouter(&fakeIntegrationUsecase{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/integrations/tasks/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "tasks", body["provider"])
}
