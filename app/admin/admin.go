// Package admin contains the endpoints restricted to the admin role
package admin

import (
	"net/http"

	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

func ListUsers(c *gin.Context, d *internal.Deps) {
	users, err := d.Accounts.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.List(c, users)
}

func GetUser(c *gin.Context, d *internal.Deps) {
	u, err := d.Accounts.Get(c.Request.Context(), c.Param("idUser"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, u, nil)
}

// DeleteUser removes the user with their keys and notifications
func DeleteUser(c *gin.Context, d *internal.Deps) {
	if err := d.Accounts.DeleteUser(c.Request.Context(), c.Param("idUser")); err != nil {
		httpx.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func ListAPIKeys(c *gin.Context, d *internal.Deps) {
	sets, err := d.Keys.ListAll(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.List(c, sets)
}

type decisionBody struct {
	// Pointer so a missing field is told apart from false
	Active *bool `json:"active" binding:"required"`
}

func DecideAPIKey(c *gin.Context, d *internal.Deps) {
	var data decisionBody
	if !httpx.Bind(c, &data) {
		return
	}

	r, err := d.Keys.AdminDecision(c.Request.Context(), c.Param("idUser"), c.Param("idApi"), *data.Active)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	// The secret is only shown to its owner
	var key *model.APIKey
	if r.Key != nil {
		k := *r.Key
		k.Key = ""
		key = &k
	}

	httpx.OK(c, key, r.Notification)
}

func DeleteAPIKey(c *gin.Context, d *internal.Deps) {
	r, err := d.Keys.DeleteKey(c.Request.Context(), httpx.CurrentUser(c), c.Param("idUser"), c.Param("idApi"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, r.Notification)
}
