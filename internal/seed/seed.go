package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

const placeholderImage = "https://placehold.co/400x400"

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type productSeed struct {
	ID          string
	Name        string
	Category    string
	PriceCents  int64
	Stock       int
	Tags        []string
	Description string
	AIHint      string
	Deal        string
}

var demoProducts = []productSeed{
	{ID: "1", Name: "Classic Leather Jacket", Category: "Apparel", PriceCents: 4999, Stock: 12, Tags: []string{"men", "outerwear", "leather"}, Description: "A timeless leather jacket for a cool, classic look.", AIHint: "leather jacket", Deal: "Deal of the day"},
	{ID: "2", Name: "Slim Fit Denim Jeans", Category: "Apparel", PriceCents: 1899, Stock: 35, Tags: []string{"men", "pants", "denim", "new"}, Description: "Modern slim fit jeans made from high-quality stretch denim.", AIHint: "denim jeans", Deal: "Deal of the day"},
	{ID: "3", Name: "Urban Canvas Sneakers", Category: "Footwear", PriceCents: 2499, Stock: 25, Tags: []string{"unisex", "shoes", "casual"}, Description: "Comfortable and stylish canvas sneakers for everyday wear.", AIHint: "canvas sneakers", Deal: "Deal of the day"},
	{ID: "4", Name: "Silk Blend Scarf", Category: "Accessories", PriceCents: 899, Stock: 50, Tags: []string{"women", "accessories", "silk"}, Description: "A luxurious silk blend scarf with a vibrant pattern.", AIHint: "silk scarf", Deal: "Deal of the day"},
	{ID: "5", Name: "Retro Sunglasses", Category: "Accessories", PriceCents: 1299, Stock: 40, Tags: []string{"unisex", "sunglasses", "retro"}, Description: "Vintage-inspired sunglasses with full UV protection.", AIHint: "retro sunglasses"},
	{ID: "6", Name: "Cotton Crew-Neck T-Shirt", Category: "Apparel", PriceCents: 799, Stock: 150, Tags: []string{"unisex", "tops", "basics"}, Description: "A soft, breathable 100% cotton t-shirt, perfect for layering.", AIHint: "cotton t-shirt"},
	{ID: "7", Name: "Leather Crossbody Bag", Category: "Bags", PriceCents: 3299, Stock: 22, Tags: []string{"women", "bags", "leather", "new"}, Description: "A chic and practical leather crossbody bag for your essentials.", AIHint: "leather bag"},
	{ID: "8", Name: "Performance Running Shoes", Category: "Footwear", PriceCents: 5499, Stock: 18, Tags: []string{"men", "sports", "running", "shoes"}, Description: "Lightweight running shoes designed for maximum performance.", AIHint: "running shoes"},
	{ID: "9", Name: "Wool Beanie", Category: "Accessories", PriceCents: 999, Stock: 3, Tags: []string{"unisex", "winter", "hats"}, Description: "A warm and cozy wool beanie for chilly days. Low stock!", AIHint: "wool beanie"},
	{ID: "10", Name: "Linen Button-Up Shirt", Category: "Apparel", PriceCents: 2199, Stock: 4, Tags: []string{"men", "summer", "shirt"}, Description: "A breathable linen shirt perfect for warm weather. Low stock!", AIHint: "linen shirt"},
}

// Products returns the demo catalog.
func Products() []domain.Product {
	out := make([]domain.Product, 0, len(demoProducts))
	for _, s := range demoProducts {
		p := domain.Product{
			ID:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			Price:       s.PriceCents,
			Stock:       s.Stock,
			Tags:        append([]string(nil), s.Tags...),
			Description: s.Description,
			Image:       placeholderImage,
			AIHint:      s.AIHint,
		}
		if s.Deal != "" {
			deal := s.Deal
			p.Deal = &deal
		}
		out = append(out, p)
	}
	return out
}

// Apply upserts the demo catalog. It is idempotent.
func Apply(ctx context.Context, repo ProductWriter) (int, error) {
	products := Products()
	for _, p := range products {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return len(products), nil
}
