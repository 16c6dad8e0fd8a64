package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

type credentialsBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func ActivateAccount(c *gin.Context, d *internal.Deps) {
	token, ok := httpx.Token(c, "token")
	if !ok {
		return
	}

	var data credentialsBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.ConfirmActivation(c.Request.Context(), data.Email, data.Password, token)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	respond(c, r)
}
