package user

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

type signupBody struct {
	Firstname       string `json:"firstname" binding:"required"`
	Lastname        string `json:"lastname" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

func Signup(c *gin.Context, d *internal.Deps) {
	var data signupBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.Signup(c.Request.Context(), account.SignupInput{
		Firstname:       data.Firstname,
		Lastname:        data.Lastname,
		Email:           data.Email,
		Password:        data.Password,
		PasswordConfirm: data.PasswordConfirm,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, r.User, r.Notification)
}
