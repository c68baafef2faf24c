package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	joinedRedirect     = "/?notice=group_joined"
	joinFailedRedirect = "/?notice=group_join_failed"
)

// joinByLink is where invite links land. The visitor always ends up on the
// storefront home; the notice query tells the page what happened. Visitors
// without a guest identity get one first.
func (h *handlers) joinByLink(c *gin.Context) {
	ctx := c.Request.Context()
	cartID := c.Param("cartId")

	user, ok, err := h.identify(c)
	if err != nil {
		h.logger.Printf("httpserver: join link identify cart=%s err=%v", cartID, err)
		c.Redirect(http.StatusSeeOther, joinFailedRedirect)
		return
	}
	if !ok {
		issued, token, err := h.guests.Issue(ctx, "")
		if err != nil {
			h.logger.Printf("httpserver: join link issue guest cart=%s err=%v", cartID, err)
			c.Redirect(http.StatusSeeOther, joinFailedRedirect)
			return
		}
		h.setGuestCookie(c, token)
		user = issued
	}

	if _, err := h.carts.Join(ctx, cartID, user); err != nil {
		h.logger.Printf("httpserver: join link cart=%s user=%s err=%v", cartID, user.ID, err)
		c.Redirect(http.StatusSeeOther, joinFailedRedirect)
		return
	}

	h.setGroupCartCookie(c, cartID)
	c.Redirect(http.StatusSeeOther, joinedRedirect)
}
