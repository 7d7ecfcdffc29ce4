package delivery

import (
	"net/http"
	"net/url"

	"privatezone-backend/internal/errs"
	"privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/usecase"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type IntegrationHandler struct {
	integrationUsecase usecase.IntegrationUsecase
	frontendURL        string
}

func NewIntegrationHandler(integrationUsecase usecase.IntegrationUsecase, frontendURL string) *IntegrationHandler {
	return &IntegrationHandler{
		integrationUsecase: integrationUsecase,
		frontendURL:        frontendURL,
	}
}

func providerParam(c *gin.Context) (domain.Provider, bool) {
	p, err := domain.ParseProvider(c.Param("provider"))
	if err != nil {
		response.Error(c, errs.Validation("%s", err.Error()))
		return "", false
	}
	return p, true
}

// Connect returns the consent URL the browser should open.
// GET /api/integrations/:provider/connect
func (h *IntegrationHandler) Connect(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	consentURL, err := h.integrationUsecase.ConnectURL(c.Request.Context(), c.GetString("userID"), provider)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"url": consentURL})
}

// Callback is the OAuth redirect target. The user is identified by the
// signed state, not by a session.
// GET /api/integrations/callback?code=...&state=...
func (h *IntegrationHandler) Callback(c *gin.Context) {
	if oauthErr := c.Query("error"); oauthErr != "" {
		h.finishCallback(c, "", errs.Auth("authorization denied: "+oauthErr, nil))
		return
	}

	res, err := h.integrationUsecase.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		h.finishCallback(c, "", err)
		return
	}
	h.finishCallback(c, res.Provider, nil)
}

func (h *IntegrationHandler) finishCallback(c *gin.Context, provider string, err error) {
	if h.frontendURL == "" {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"connected": provider})
		return
	}

	q := url.Values{}
	if err != nil {
		_ = c.Error(err)
		q.Set("error", err.Error())
	} else {
		q.Set("connected", provider)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/?"+q.Encode())
}

// GET /api/integrations/:provider/status
func (h *IntegrationHandler) Status(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	status, err := h.integrationUsecase.Status(c.Request.Context(), c.GetString("userID"), provider)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"provider":        status.Provider,
		"connected":       status.Connected,
		"email":           status.Email,
		"expiresAt":       status.ExpiresAt,
		"connectedAt":     status.ConnectedAt,
		"lastSyncAt":      status.LastSyncAt,
		"lastSyncedCount": status.LastSynced,
	})
}

// POST /api/integrations/:provider/disconnect
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	if err := h.integrationUsecase.Disconnect(c.Request.Context(), c.GetString("userID"), provider); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"message": string(provider) + " disconnected"})
}

// GET /api/integrations/:provider/test
func (h *IntegrationHandler) Test(c *gin.Context) {
	provider, ok := providerParam(c)
	if !ok {
		return
	}

	if err := h.integrationUsecase.Test(c.Request.Context(), c.GetString("userID"), provider); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"message": string(provider) + " connection is working"})
}
