// Package apikey contains the API key endpoints of regular users
package apikey

import (
	"net/http"

	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

func List(c *gin.Context, d *internal.Deps) {
	keys, err := d.Keys.ListMine(c.Request.Context(), httpx.CurrentUser(c).ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.List(c, keys)
}

type requestBody struct {
	APIName string `json:"apiName" binding:"required,apiname"`
}

func Request(c *gin.Context, d *internal.Deps) {
	var data requestBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Keys.RequestCreation(c.Request.Context(), httpx.CurrentUser(c), data.APIName)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpx.Envelope{
		Status:       "success",
		Data:         r.Key,
		Notification: r.Notification,
	})
}

func RequestRenewal(c *gin.Context, d *internal.Deps) {
	r, err := d.Keys.RequestRenewal(c.Request.Context(), httpx.CurrentUser(c), c.Param("idApi"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, r.Notification)
}

type confirmRenewalBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func ConfirmRenewal(c *gin.Context, d *internal.Deps) {
	token, ok := httpx.Token(c, "token")
	if !ok {
		return
	}

	var data confirmRenewalBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Keys.ConfirmRenewal(c.Request.Context(), data.Email, data.Password, token)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, r.Key, r.Notification)
}

// Delete removes one of the caller's own keys
func Delete(c *gin.Context, d *internal.Deps) {
	u := httpx.CurrentUser(c)

	r, err := d.Keys.DeleteKey(c.Request.Context(), u, u.ID, c.Param("idApi"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, r.Notification)
}
