package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"bitwise74/account-api/internal/apperr"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the session token
const SessionCookie = "jwt"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// sessionToken reads the Bearer header first, then the cookie
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	if t, err := c.Cookie(SessionCookie); err == nil && t != "loggedout" {
		return t
	}

	return ""
}

// Protect rejects requests without a valid session and attaches the user
func Protect(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			httpx.Error(c, apperr.ErrUnauthenticated)
			return
		}

		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		c.Set(httpx.UserKey, u)
		c.Next()
	}
}

// Optional attaches the user when the session is valid and carries on
// silently otherwise
func Optional(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			if u, err := a.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(httpx.UserKey, u)
			} else if apperr.KindOf(err) == apperr.Internal {
				httpx.Error(c, err)
				return
			}
		}

		c.Next()
	}
}

// RestrictTo must run after Protect
func RestrictTo(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := httpx.CurrentUser(c)
		if u == nil {
			httpx.Error(c, apperr.ErrUnauthenticated)
			return
		}

		if !slices.Contains(roles, u.Role) {
			httpx.Error(c, apperr.ErrForbidden)
			return
		}

		c.Next()
	}
}

// SetSession writes the session cookie
func SetSession(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

// ClearSession overwrites the session cookie with a short lived placeholder
func ClearSession(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "loggedout", 10, "/", "", secure, true)
}
