package httpserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

type groupCartResponse struct {
	Cart       *domain.GroupCart `json:"cart"`
	InviteLink string            `json:"inviteLink"`
	Notice     *domain.Notice    `json:"notice,omitempty"`
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func (h *handlers) cartResponse(cart *domain.GroupCart, op string) groupCartResponse {
	resp := groupCartResponse{Cart: cart, InviteLink: h.carts.InviteLink(cart.ID)}
	if op != "" {
		n := domain.SuccessNotice(op)
		resp.Notice = &n
	}
	return resp
}

func (h *handlers) createGroupCart(c *gin.Context) {
	owner, _ := guestFrom(c)
	cart, err := h.carts.Create(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, domain.OpCreate, err)
		return
	}
	h.setGroupCartCookie(c, cart.ID)
	c.JSON(http.StatusCreated, h.cartResponse(cart, domain.OpCreate))
}

func (h *handlers) getGroupCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(cart, ""))
}

func (h *handlers) joinGroupCart(c *gin.Context) {
	user, _ := guestFrom(c)
	cart, err := h.carts.Join(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.writeError(c, domain.OpJoin, err)
		return
	}
	h.setGroupCartCookie(c, cart.ID)
	c.JSON(http.StatusOK, h.cartResponse(cart, domain.OpJoin))
}

func (h *handlers) leaveGroupCart(c *gin.Context) {
	user, _ := guestFrom(c)
	if err := h.carts.Leave(c.Request.Context(), c.Param("id"), user); err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			h.clearGroupCartCookie(c, c.Param("id"))
		}
		h.writeError(c, domain.OpLeave, err)
		return
	}
	h.clearGroupCartCookie(c, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"notice": domain.SuccessNotice(domain.OpLeave)})
}

func (h *handlers) addGroupCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, domain.OpAddItem, err)
		return
	}
	user, _ := guestFrom(c)
	cart, err := h.carts.AddItem(c.Request.Context(), c.Param("id"), req.ProductID, user)
	if err != nil {
		h.writeError(c, domain.OpAddItem, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(cart, domain.OpAddItem))
}

func (h *handlers) deleteGroupCart(c *gin.Context) {
	user, _ := guestFrom(c)
	if err := h.carts.Delete(c.Request.Context(), c.Param("id"), user); err != nil {
		h.writeError(c, domain.OpDelete, err)
		return
	}
	h.clearGroupCartCookie(c, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"notice": domain.SuccessNotice(domain.OpDelete)})
}

// streamGroupCart pushes the cart as server-sent events: one "snapshot" per
// observed state and a final "deleted" once the cart is gone.
func (h *handlers) streamGroupCart(c *gin.Context) {
	ctx := c.Request.Context()
	cartID := c.Param("id")
	st, err := h.carts.Subscribe(ctx, cartID)
	if err != nil {
		h.writeError(c, "", err)
		return
	}
	defer st.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-h.shutdown:
			return false
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case cart, ok := <-st.C():
			if !ok {
				return false
			}
			if cart == nil {
				c.SSEvent("deleted", gin.H{"id": cartID})
				return false
			}
			c.SSEvent("snapshot", cart)
			return true
		}
	})
}
