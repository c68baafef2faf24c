package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"storefront/internal/ai"
	"storefront/internal/domain"
	groupcartsvc "storefront/internal/service/groupcart"
	productsvc "storefront/internal/service/product"
)

type groupCartService interface {
	Create(ctx context.Context, owner domain.User) (*domain.GroupCart, error)
	Get(ctx context.Context, cartID string) (*domain.GroupCart, error)
	Join(ctx context.Context, cartID string, user domain.User) (*domain.GroupCart, error)
	Leave(ctx context.Context, cartID string, user domain.User) error
	AddItem(ctx context.Context, cartID, productID string, user domain.User) (*domain.GroupCart, error)
	Delete(ctx context.Context, cartID string, user domain.User) error
	Subscribe(ctx context.Context, cartID string) (*groupcartsvc.Stream, error)
	InviteLink(cartID string) string
}

type catalogService interface {
	List(ctx context.Context, f productsvc.Filter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	ByTags(ctx context.Context, tags []string) ([]domain.Product, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
}

type guestService interface {
	Issue(ctx context.Context, name string) (domain.User, string, error)
	Lookup(ctx context.Context, token string) (domain.User, error)
	TTLSeconds() int
}

type aiFlows interface {
	ChatDiscovery(ctx context.Context, in ai.ChatInput) (*ai.ChatOutput, error)
	SuggestOutfit(ctx context.Context, in ai.OutfitInput) (*ai.OutfitOutput, error)
	RestockingSuggestions(ctx context.Context, products []ai.RestockProduct) ([]ai.RestockSuggestion, error)
	StyleAdvice(ctx context.Context, in ai.StyleAdviceInput) (*ai.StyleAdviceOutput, error)
}

type imageLookup interface {
	Lookup(ctx context.Context, query string) string
}

// Deps carries the services behind the HTTP API. Flows and Images are
// optional; without Flows the /ai routes are not mounted and without Images
// /api/images always answers with the placeholder.
type Deps struct {
	GroupCarts groupCartService
	Products   catalogService
	Guests     guestService
	Flows      aiFlows
	Images     imageLookup
	Ready      func(context.Context) error

	CORSOrigins     []string
	AIRatePerSecond float64
	// Heartbeat is the idle interval between keep-alive events on the
	// group cart stream. Zero means 20s.
	Heartbeat time.Duration

	shutdown <-chan struct{}
}

type handlers struct {
	logger    *log.Logger
	carts     groupCartService
	products  catalogService
	guests    guestService
	flows     aiFlows
	images    imageLookup
	heartbeat time.Duration
	shutdown  <-chan struct{}
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.GroupCarts == nil || deps.Products == nil || deps.Guests == nil {
		return nil, errors.New("httpserver: group cart, product and guest services are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := &handlers{
		logger:    logger,
		carts:     deps.GroupCarts,
		products:  deps.Products,
		guests:    deps.Guests,
		flows:     deps.Flows,
		images:    deps.Images,
		heartbeat: deps.Heartbeat,
		shutdown:  deps.shutdown,
	}
	if h.heartbeat <= 0 {
		h.heartbeat = 20 * time.Second
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	router.POST("/guests", h.issueGuest)
	router.GET("/guests/me", h.requireGuest, h.currentGuest)

	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	carts := router.Group("/group-carts")
	carts.GET("/:id", h.getGroupCart)
	carts.GET("/:id/events", h.streamGroupCart)
	carts.POST("", h.requireGuest, h.createGroupCart)
	carts.POST("/:id/members", h.requireGuest, h.joinGroupCart)
	carts.POST("/:id/leave", h.requireGuest, h.leaveGroupCart)
	carts.POST("/:id/items", h.requireGuest, h.addGroupCartItem)
	carts.DELETE("/:id", h.requireGuest, h.deleteGroupCart)

	router.GET("/join/:cartId", h.joinByLink)

	if deps.Flows != nil {
		aiGroup := router.Group("/ai")
		if deps.AIRatePerSecond > 0 {
			burst := int(deps.AIRatePerSecond)
			if burst < 1 {
				burst = 1
			}
			aiGroup.Use(rateLimit(rate.NewLimiter(rate.Limit(deps.AIRatePerSecond), burst)))
		}
		aiGroup.POST("/chat", h.chat)
		aiGroup.POST("/outfit", h.suggestOutfit)
		aiGroup.POST("/restock", h.restock)
		aiGroup.POST("/style-advice", h.styleAdvice)
	}
	router.GET("/api/images", h.lookupImage)

	return router, nil
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": domain.Notice{
				Title:       "Slow down",
				Description: "Too many requests. Please wait a moment and try again.",
				Destructive: true,
			}})
			return
		}
		c.Next()
	}
}
