// Package notification exposes the notification ledger of the logged in user
package notification

import (
	"net/http"

	"bitwise74/account-api/internal"
	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

func List(c *gin.Context, d *internal.Deps) {
	notes, err := d.Ledger.ForUser(c.Request.Context(), httpx.CurrentUser(c).ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.List(c, notes)
}

func Read(c *gin.Context, d *internal.Deps) {
	n, err := d.Ledger.MarkRead(c.Request.Context(), httpx.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, n, nil)
}

func View(c *gin.Context, d *internal.Deps) {
	n, err := d.Ledger.MarkViewed(c.Request.Context(), httpx.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, n, nil)
}

func ReadAll(c *gin.Context, d *internal.Deps) {
	if err := d.Ledger.MarkAllRead(c.Request.Context(), httpx.CurrentUser(c).ID); err != nil {
		httpx.Error(c, err)
		return
	}

	httpx.OK(c, nil, nil)
}

func Delete(c *gin.Context, d *internal.Deps) {
	if err := d.Ledger.Delete(c.Request.Context(), httpx.CurrentUser(c).ID, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
