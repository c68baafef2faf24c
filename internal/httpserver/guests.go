package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/guest"
)

const (
	guestCookie     = "guest_token"
	groupCartCookie = "group_cart_id"
	guestCtxKey     = "guest"
)

var guestRequired = domain.Notice{
	Title:       "Guest required",
	Description: "Create a guest identity before using group carts.",
	Destructive: true,
}

type issueGuestRequest struct {
	Name string `json:"name"`
}

func (h *handlers) issueGuest(c *gin.Context) {
	var req issueGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, "", err)
		return
	}
	user, token, err := h.guests.Issue(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, "", err)
		return
	}
	h.setGuestCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{
		"user":      user,
		"token":     token,
		"expiresIn": h.guests.TTLSeconds(),
	})
}

func (h *handlers) currentGuest(c *gin.Context) {
	user, _ := guestFrom(c)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// identify resolves the caller from a bearer token or the guest cookie.
// Callers without a valid token are anonymous; lookup failures are returned.
func (h *handlers) identify(c *gin.Context) (domain.User, bool, error) {
	token := ""
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if token == "" {
		token, _ = c.Cookie(guestCookie)
	}
	if token == "" {
		return domain.User{}, false, nil
	}
	user, err := h.guests.Lookup(c.Request.Context(), token)
	if errors.Is(err, guest.ErrInvalidToken) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (h *handlers) requireGuest(c *gin.Context) {
	user, ok, err := h.identify(c)
	if err != nil {
		h.writeError(c, "", err)
		c.Abort()
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": guestRequired})
		return
	}
	c.Set(guestCtxKey, user)
	c.Next()
}

func guestFrom(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(guestCtxKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}

func (h *handlers) setGuestCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(guestCookie, token, h.guests.TTLSeconds(), "/", "", c.Request.TLS != nil, true)
}

// setGroupCartCookie remembers the browser's active group cart. An empty
// cartID expires the cookie.
func (h *handlers) setGroupCartCookie(c *gin.Context, cartID string) {
	maxAge := h.guests.TTLSeconds()
	if cartID == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(groupCartCookie, cartID, maxAge, "/", "", c.Request.TLS != nil, false)
}

// clearGroupCartCookie expires the cookie if it names cartID.
func (h *handlers) clearGroupCartCookie(c *gin.Context, cartID string) {
	if active, err := c.Cookie(groupCartCookie); err == nil && active == cartID {
		h.setGroupCartCookie(c, "")
	}
}
