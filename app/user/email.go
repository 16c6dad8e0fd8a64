package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

func ForgotEmail(c *gin.Context, d *internal.Deps) {
	r, err := d.Accounts.ForgotEmail(c.Request.Context(), httpx.CurrentUser(c).ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, r.Notification)
}

// ResetEmail takes the new address in email and the current password
func ResetEmail(c *gin.Context, d *internal.Deps) {
	token, ok := httpx.Token(c, "token")
	if !ok {
		return
	}

	var data credentialsBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.ResetEmail(c.Request.Context(), token, data.Password, data.Email)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	respond(c, r)
}
