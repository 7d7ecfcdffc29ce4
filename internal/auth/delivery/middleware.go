package delivery

import (
	"strings"

	"privatezone-backend/internal/auth/usecase"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the access token for browser clients.
const SessionCookie = "session"

// bearerToken reads the Authorization header, falling back to the session
// cookie.
func bearerToken(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errs.Auth("invalid authorization header format", nil)
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", errs.Auth("authorization required", nil)
}

// AuthMiddleware rejects unauthenticated requests and stores userID,
// userEmail and user in the gin context.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		user, err := authUsecase.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("userEmail", user.Email)
		c.Next()
	}
}
