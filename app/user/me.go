package user

import (
	"net/http"

	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/pkg/httpx"
	"bitwise74/account-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Me returns the logged in user, or 204 when there is none
func Me(c *gin.Context, d *internal.Deps) {
	u := httpx.CurrentUser(c)
	if u == nil {
		c.Status(http.StatusNoContent)
		return
	}

	me, err := d.Accounts.Me(c.Request.Context(), u.ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, me, nil)
}

type updateMeBody struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func UpdateMe(c *gin.Context, d *internal.Deps) {
	var data updateMeBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Accounts.UpdateMe(c.Request.Context(), httpx.CurrentUser(c).ID, account.UpdateMeInput{
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

	respond(c, r)
}

func DisableAccount(c *gin.Context, d *internal.Deps) {
	r, err := d.Accounts.Disable(c.Request.Context(), httpx.CurrentUser(c).ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	middleware.ClearSession(c, secure())
	httpx.OK(c, nil, r.Notification)
}

type deleteMeBody struct {
	Password string `json:"password" binding:"required"`
}

func DeleteMe(c *gin.Context, d *internal.Deps) {
	var data deleteMeBody
	if !httpx.Bind(c, &data) {
		return
	}

	if err := d.Accounts.DeleteMe(c.Request.Context(), httpx.CurrentUser(c).ID, data.Password); err != nil {
		httpx.Error(c, err)
		return
	}

	middleware.ClearSession(c, secure())
	c.Status(http.StatusNoContent)
}
