package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/ai"
	"storefront/internal/domain"
	"storefront/internal/imagesearch"
)

type outfitRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
	Description  string `json:"description"`
}

type restockRequest struct {
	Products []ai.RestockProduct `json:"products"`
}

func (h *handlers) chat(c *gin.Context) {
	var req ai.ChatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, domain.OpAI, err)
		return
	}
	out, err := h.flows.ChatDiscovery(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, domain.OpAI, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) suggestOutfit(c *gin.Context) {
	var req outfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, domain.OpAI, err)
		return
	}
	photo, desc := strings.TrimSpace(req.PhotoDataURI), strings.TrimSpace(req.Description)
	if photo != "" && desc != "" {
		h.badRequest(c, domain.OpAI, errors.New("photoDataUri and description are exclusive"))
		return
	}
	in := ai.ByDescription(desc)
	if photo != "" {
		in = ai.ByPhoto(photo)
	}
	out, err := h.flows.SuggestOutfit(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, domain.OpAI, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// restock analyses the posted products, or the catalog's low-stock products
// when the body names none.
func (h *handlers) restock(c *gin.Context) {
	ctx := c.Request.Context()
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, domain.OpAI, err)
		return
	}
	if len(req.Products) == 0 {
		low, err := h.products.LowStock(ctx)
		if err != nil {
			h.writeError(c, domain.OpAI, err)
			return
		}
		for _, p := range low {
			req.Products = append(req.Products, ai.RestockProductFrom(p))
		}
	}
	suggestions, err := h.flows.RestockingSuggestions(ctx, req.Products)
	if err != nil {
		h.writeError(c, domain.OpAI, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// styleAdvice returns the advice plus the catalog products matching its
// recommended tags.
func (h *handlers) styleAdvice(c *gin.Context) {
	ctx := c.Request.Context()
	var req ai.StyleAdviceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, domain.OpAI, err)
		return
	}
	advice, err := h.flows.StyleAdvice(ctx, req)
	if err != nil {
		h.writeError(c, domain.OpAI, err)
		return
	}
	products, err := h.products.ByTags(ctx, advice.RecommendedProductTags)
	if err != nil {
		h.writeError(c, domain.OpAI, fmt.Errorf("style advice products: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice, "products": toProductViews(products)})
}

func (h *handlers) lookupImage(c *gin.Context) {
	url := imagesearch.Placeholder
	if h.images != nil {
		url = h.images.Lookup(c.Request.Context(), c.Query("query"))
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}
