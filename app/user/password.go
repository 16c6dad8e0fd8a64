package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

type forgotPasswordBody struct {
	Email string `json:"email" binding:"required"`
}

func ForgotPassword(c *gin.Context, d *internal.Deps) {
	var data forgotPasswordBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.ForgotPassword(c.Request.Context(), data.Email)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, r.Notification)
}

type resetPasswordBody struct {
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	token, ok := httpx.Token(c, "token")
	if !ok {
		return
	}

	var data resetPasswordBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.ResetPassword(c.Request.Context(), token, data.Password, data.PasswordConfirm)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	respond(c, r)
}

type updatePasswordBody struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

func UpdatePassword(c *gin.Context, d *internal.Deps) {
	var data updatePasswordBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.UpdatePassword(c.Request.Context(),
		httpx.CurrentUser(c).ID, data.PasswordCurrent, data.Password, data.PasswordConfirm)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	respond(c, r)
}
