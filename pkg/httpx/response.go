// Package httpx writes the JSON envelope shared by every endpoint
package httpx

import (
	"net/http"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	RequestIDKey = "requestID"
	UserKey      = "user"
)

type Envelope struct {
	Status       string        `json:"status"`
	Token        string        `json:"token,omitempty"`
	Results      *int          `json:"results,omitempty"`
	Data         any           `json:"data,omitempty"`
	Notification *model.Notice `json:"notification,omitempty"`
}

type ErrorBody struct {
	Status    string            `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestID,omitempty"`
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Forbidden, apperr.ActivationPending:
		return http.StatusForbidden
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.AccountLocked:
		return http.StatusLocked
	case apperr.EmailDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// CurrentUser returns the user attached by the session middleware, or nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func OK(c *gin.Context, data any, notice *model.Notice) {
	c.JSON(http.StatusOK, Envelope{Status: "success", Data: data, Notification: notice})
}

// Session writes a response carrying a freshly issued session token. The
// cookie itself is set by the caller.
func Session(c *gin.Context, token string, data any, notice *model.Notice) {
	c.JSON(http.StatusOK, Envelope{Status: "success", Token: token, Data: data, Notification: notice})
}

func List[T any](c *gin.Context, items []T) {
	n := len(items)
	c.JSON(http.StatusOK, Envelope{Status: "success", Results: &n, Data: items})
}

// Error logs err and aborts the request with its classified response.
// Internal details never leave the server in production.
func Error(c *gin.Context, err error) {
	e := apperr.As(err)
	requestID := RequestID(c)
	status := StatusOf(e.Kind)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("requestID", requestID),
		zap.String("kind", e.Kind.String()),
	}

	switch {
	case e.Kind == apperr.Internal:
		zap.L().Error("Request failed", fields...)
	case e.Kind == apperr.EmailDeliveryFailed:
		zap.L().Warn("Request rolled back after mail failure", fields...)
	default:
		zap.L().Debug("Request rejected", fields...)
	}

	body := ErrorBody{
		Status:    "fail",
		Code:      e.Code,
		Message:   e.Message,
		Fields:    e.Fields,
		RequestID: requestID,
	}

	if status >= http.StatusInternalServerError {
		body.Status = "error"
	}

	if e.Kind == apperr.Internal {
		if viper.GetString("app.env") == "production" {
			body.Message = "Something went wrong, please try again later"
		} else if e.Err != nil {
			body.Message = e.Error()
		}
	}

	c.AbortWithStatusJSON(status, body)
}
