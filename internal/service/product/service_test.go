package product

import (
	"context"
	"testing"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

func ptr(v int64) *int64 { return &v }

func testService() *Service {
	return New(productrepo.NewMemory(
		domain.Product{ID: "1", Name: "Classic Leather Jacket", Category: "Apparel", Stock: 12, Tags: []string{"men", "leather"}, Description: "A timeless leather jacket."},
		domain.Product{ID: "4", Name: "Silk Blend Scarf", Category: "Accessories", Stock: 50, Tags: []string{"women", "silk"}},
		domain.Product{ID: "9", Name: "Wool Beanie", Category: "Accessories", Stock: 3, Tags: []string{"unisex", "winter"}},
		domain.Product{ID: "10", Name: "Linen Button-Up Shirt", Category: "Apparel", Stock: 4, Tags: []string{"men", "summer"}},
	))
}

func TestList_Filters(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	all, err := svc.List(ctx, Filter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 products, got %d err=%v", len(all), err)
	}

	apparel, _ := svc.List(ctx, Filter{Category: "apparel"})
	if len(apparel) != 2 {
		t.Fatalf("expected 2 apparel products, got %d", len(apparel))
	}

	men, _ := svc.List(ctx, Filter{Category: "Apparel", Tag: "leather"})
	if len(men) != 1 || men[0].ID != "1" {
		t.Fatalf("unexpected tag filter result %+v", men)
	}

	q, _ := svc.List(ctx, Filter{Query: "TIMELESS"})
	if len(q) != 1 || q[0].ID != "1" {
		t.Fatalf("unexpected query result %+v", q)
	}
}

func TestByTags(t *testing.T) {
	svc := testService()
	got, err := svc.ByTags(context.Background(), []string{"silk", "winter"})
	if err != nil {
		t.Fatalf("ByTags: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %+v", got)
	}
	none, _ := svc.ByTags(context.Background(), nil)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %#v", none)
	}
}

func TestLowStock(t *testing.T) {
	got, err := testService().LowStock(context.Background())
	if err != nil {
		t.Fatalf("LowStock: %v", err)
	}
	if len(got) != 2 || got[0].ID != "9" || got[1].ID != "10" {
		t.Fatalf("unexpected low stock list %+v", got)
	}
}

func TestTrendingScore(t *testing.T) {
	cases := []struct {
		name string
		p    domain.Product
		want int
	}{
		{"no metrics", domain.Product{}, 0},
		{"at maxima", domain.Product{Views: ptr(5000), WishlistCount: ptr(1500), TimeSpent: ptr(1000)}, 100},
		{"capped", domain.Product{Views: ptr(50000)}, 100},
		{"views only", domain.Product{Views: ptr(2750)}, 40},
		{"mixed", domain.Product{Views: ptr(1000), WishlistCount: ptr(300), TimeSpent: ptr(200)}, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TrendingScore(tc.p); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
