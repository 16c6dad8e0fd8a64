package httpx

import (
	"errors"
	"net/http"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errBodyInvalid = apperr.New(apperr.Validation, "invalid_body", "Invalid request body")

// Bind decodes the JSON body into dst and writes the error response when it
// fails. Handlers return when ok is false.
func Bind(c *gin.Context, dst any) (ok bool) {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorBody{
			Status:    "fail",
			Code:      "body_too_large",
			Message:   "Request body size exceeds limit",
			RequestID: RequestID(c),
		})
		return false
	}

	if v, ok := validators.FromBinding(err); ok {
		Error(c, apperr.Invalid(v))
		return false
	}

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", RequestID(c)))
	Error(c, errBodyInvalid)
	return false
}

// Token validates a path token before it is used in a lookup
func Token(c *gin.Context, param string) (string, bool) {
	t := c.Param(param)
	if err := validators.TokenValidator(t); err != nil {
		Error(c, apperr.Invalid(map[string]string{"token": err.Error()}))
		return "", false
	}
	return t, true
}
