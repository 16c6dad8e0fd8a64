// Package user contains the account endpoints
package user

import (
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/pkg/httpx"
	"bitwise74/account-api/pkg/middleware"
	"bitwise74/account-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func secure() bool {
	return viper.GetBool("host.ssl.enabled")
}

// respond writes r, setting the session cookie when a session was issued
func respond(c *gin.Context, r *account.Result) {
	if r.Session == "" {
		httpx.OK(c, r.User, r.Notification)
		return
	}

	middleware.SetSession(c, r.Session, int(security.SessionTTL.Seconds()), secure())
	httpx.Session(c, r.Session, r.User, r.Notification)
}
