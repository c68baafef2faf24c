package importer

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `id,name,category,price,stock,tags,description,image,aiHint,deal,views
11,Canvas Tote,accessories,1999,12,women; bags ;new,Sturdy tote,https://example.com/tote.jpg,canvas tote,,320
,,,,,,,,,,
12,Rain Jacket,NEW ARRIVALS,8999,2,outerwear,Keeps you dry,,rain jacket,20% off,`

	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 || len(repo.items) != 2 {
		t.Fatalf("expected 2 products imported, got %d (saved %d)", count, len(repo.items))
	}

	tote := repo.items[0]
	if tote.ID != "11" || tote.Name != "Canvas Tote" || tote.Price != 1999 || tote.Stock != 12 {
		t.Fatalf("unexpected product data: %+v", tote)
	}
	if tote.Category != "Accessories" {
		t.Fatalf("expected title-cased category, got %q", tote.Category)
	}
	if strings.Join(tote.Tags, ",") != "women,bags,new" {
		t.Fatalf("unexpected tags %v", tote.Tags)
	}
	if tote.Deal != nil {
		t.Fatalf("expected no deal, got %q", *tote.Deal)
	}
	if tote.Views == nil || *tote.Views != 320 || tote.WishlistCount != nil {
		t.Fatalf("unexpected metrics %+v", tote)
	}

	jacket := repo.items[1]
	if jacket.Category != "New Arrivals" {
		t.Fatalf("expected title-cased category, got %q", jacket.Category)
	}
	if jacket.Deal == nil || *jacket.Deal != "20% off" {
		t.Fatalf("expected deal to be imported, got %v", jacket.Deal)
	}
	if jacket.Views != nil {
		t.Fatalf("expected unset views, got %d", *jacket.Views)
	}
}

func TestCSVImporter_MissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing id":    "id,name,price\n,Hat,100\n",
		"missing name":  "id,name,price\n1,,100\n",
		"missing price": "id,name,price\n1,Hat,\n",
		"bad price":     "id,name,price\n1,Hat,12.50\n",
		"bad stock":     "id,name,price,stock\n1,Hat,100,-1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubProductRepo{}
			count, err := NewCSVImporter(strings.NewReader(data), repo).Run(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if count != 0 || len(repo.items) != 0 {
				t.Fatalf("expected nothing imported, got %d", count)
			}
		})
	}
}

func TestCSVImporter_StopsAtFirstInvalidRow(t *testing.T) {
	data := "id,name,price\n1,Hat,100\n2,,200\n3,Scarf,300\n"
	repo := &stubProductRepo{}
	count, err := NewCSVImporter(strings.NewReader(data), repo).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error on line 3, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 product before the failure, got %d", count)
	}
}

func TestCSVImporter_EmptyInput(t *testing.T) {
	if _, err := NewCSVImporter(strings.NewReader(""), &stubProductRepo{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing header")
	}
}
