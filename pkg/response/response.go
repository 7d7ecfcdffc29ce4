package response

import (
	"privatezone-backend/internal/errs"

	"github.com/gin-gonic/gin"
)

// OK writes a success envelope. The payload keys are merged into it.
func OK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error writes a failure envelope with the status derived from the error kind.
func Error(c *gin.Context, err error) {
	body := gin.H{"success": false, "error": err.Error()}
	if ps := errs.ProviderStatus(err); ps > 0 {
		body["providerStatus"] = ps
	}
	_ = c.Error(err)
	c.JSON(errs.HTTPStatus(err), body)
}

// BadRequest is shorthand for a binding failure.
func BadRequest(c *gin.Context, err error) {
	Error(c, errs.Validation("%s", err.Error()))
}
