package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"
	"bitwise74/account-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	respond(c, r)
}

func Logout(c *gin.Context) {
	middleware.ClearSession(c, secure())
	httpx.OK(c, nil, nil)
}
