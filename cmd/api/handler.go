package api

import (
	"net/http"
	"time"

	authDelivery "privatezone-backend/internal/auth/delivery"
	authUsecase "privatezone-backend/internal/auth/usecase"
	calendarDelivery "privatezone-backend/internal/calendar/delivery"
	emailDelivery "privatezone-backend/internal/email/delivery"
	integrationDelivery "privatezone-backend/internal/integration/delivery"
	taskDelivery "privatezone-backend/internal/task/delivery"
	"privatezone-backend/pkg/config"
	"privatezone-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	authUsecase        authUsecase.AuthUsecase
	authHandler        *authDelivery.AuthHandler
	integrationHandler *integrationDelivery.IntegrationHandler
	emailHandler       *emailDelivery.EmailHandler
	calendarHandler    *calendarDelivery.CalendarHandler
	taskHandler        *taskDelivery.TaskHandler
	config             *config.Config
	logger             *zap.Logger
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	integrationHandler *integrationDelivery.IntegrationHandler,
	emailHandler *emailDelivery.EmailHandler,
	calendarHandler *calendarDelivery.CalendarHandler,
	taskHandler *taskDelivery.TaskHandler,
	cfg *config.Config,
	log *zap.Logger,
) *Handler {
	return &Handler{
		authUsecase:        authUc,
		authHandler:        authDelivery.NewAuthHandler(authUc, cfg),
		integrationHandler: integrationHandler,
		emailHandler:       emailHandler,
		calendarHandler:    calendarHandler,
		taskHandler:        taskHandler,
		config:             cfg,
		logger:             log,
	}
}

// cors reflects the caller's origin so cookie auth works from the frontend.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Engine builds the gin engine with middleware and every route registered.
func (h *Handler) Engine() *gin.Engine {
	if h.config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.Recovery(h.logger), logger.GinMiddleware(h.logger), cors())

	SetupRoutes(r, h)
	return r
}

// Server wraps the engine in an http.Server so main can shut it down
// gracefully.
func (h *Handler) Server() *http.Server {
	return &http.Server{
		Addr:              ":" + h.config.Port,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
