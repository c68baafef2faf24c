package product

import (
	"context"
	"math"
	"sort"
	"strings"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

// Reference maxima used to normalize trending scores to 0..100.
const (
	maxViews     = 5000
	maxWishlist  = 1500
	maxTimeSpent = 1000
)

// LowStockThreshold is the stock level at or below which a product is a
// restocking candidate.
const LowStockThreshold = 5

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Category string
	Tag      string
	Query    string
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// ByTags returns products carrying at least one of tags.
func (s *Service) ByTags(ctx context.Context, tags []string) ([]domain.Product, error) {
	if len(tags) == 0 {
		return []domain.Product{}, nil
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Product{}
	for _, p := range all {
		for _, t := range tags {
			if p.HasTag(t) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// LowStock returns products at or below LowStockThreshold, lowest first.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	for _, p := range all {
		if p.Stock <= LowStockThreshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

// TrendingScore weighs views, wishlist adds and time spent into a 0..100
// score. Missing metrics count as zero.
func TrendingScore(p domain.Product) int {
	raw := 0.4*float64(deref(p.Views)) + 0.3*float64(deref(p.WishlistCount)) + 0.3*float64(deref(p.TimeSpent))
	maxScore := 0.4*maxViews + 0.3*maxWishlist + 0.3*maxTimeSpent
	score := int(math.Round(raw / maxScore * 100))
	if score > 100 {
		return 100
	}
	return score
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
