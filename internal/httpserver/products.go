package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

type productView struct {
	domain.Product
	TrendingScore int `json:"trendingScore"`
}

func toProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{Product: p, TrendingScore: productsvc.TrendingScore(p)})
	}
	return out
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context(), productsvc.Filter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Query:    c.Query("q"),
	})
	if err != nil {
		h.writeError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": toProductViews(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, productView{Product: *p, TrendingScore: productsvc.TrendingScore(*p)})
}
