package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"storefront/internal/ai"
	"storefront/internal/domain"
)

type stubFlows struct {
	chatErr       error
	outfitCalls   int
	restockInput  []ai.RestockProduct
	recommendTags []string
}

func (s *stubFlows) ChatDiscovery(_ context.Context, in ai.ChatInput) (*ai.ChatOutput, error) {
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	return &ai.ChatOutput{Response: "Try the linen shirt for " + in.Query}, nil
}

func (s *stubFlows) SuggestOutfit(_ context.Context, _ ai.OutfitInput) (*ai.OutfitOutput, error) {
	s.outfitCalls++
	return &ai.OutfitOutput{MainItem: "shirt", Complementary: []string{"chinos", "loafers"}}, nil
}

func (s *stubFlows) RestockingSuggestions(_ context.Context, products []ai.RestockProduct) ([]ai.RestockSuggestion, error) {
	s.restockInput = products
	out := make([]ai.RestockSuggestion, 0, len(products))
	for _, p := range products {
		out = append(out, ai.RestockSuggestion{ProductName: p.Name, Suggestion: "order more"})
	}
	return out, nil
}

func (s *stubFlows) StyleAdvice(_ context.Context, _ ai.StyleAdviceInput) (*ai.StyleAdviceOutput, error) {
	return &ai.StyleAdviceOutput{
		FacialAnalysis:         ai.FacialAnalysis{Gender: "female", Age: "30s", FaceShape: "oval", Mood: "happy"},
		StyleAdvice:            "Go relaxed.",
		RecommendedProductTags: s.recommendTags,
	}, nil
}

func TestAIRoutesNotMountedWithoutFlows(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/ai/chat", `{"query":"hi"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Flows = &stubFlows{} })
	rec := f.do(t, http.MethodPost, "/ai/chat", `{"query":"summer"}`, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "linen shirt for summer") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	flows := &stubFlows{chatErr: fmt.Errorf("generate: %w", domain.ErrNetworkFailure)}
	f := newFixture(t, func(d *Deps) { d.Flows = flows })
	rec := f.do(t, http.MethodPost, "/ai/chat", `{"query":"summer"}`, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "generate") {
		t.Fatalf("error details leaked: %s", rec.Body.String())
	}
}

func TestSuggestOutfit_PhotoAndDescriptionAreExclusive(t *testing.T) {
	flows := &stubFlows{}
	f := newFixture(t, func(d *Deps) { d.Flows = flows })
	body := `{"photoDataUri":"data:image/png;base64,aGk=","description":"red dress"}`
	rec := f.do(t, http.MethodPost, "/ai/outfit", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if flows.outfitCalls != 0 {
		t.Fatalf("flow should not run")
	}

	rec = f.do(t, http.MethodPost, "/ai/outfit", `{"description":"red dress"}`, "")
	if rec.Code != http.StatusOK || flows.outfitCalls != 1 {
		t.Fatalf("unexpected response %d calls=%d", rec.Code, flows.outfitCalls)
	}
}

func TestRestock_DefaultsToLowStockProducts(t *testing.T) {
	flows := &stubFlows{}
	f := newFixture(t, func(d *Deps) { d.Flows = flows })
	rec := f.do(t, http.MethodPost, "/ai/restock", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(flows.restockInput) != 1 || flows.restockInput[0].Name != "Linen Shirt" {
		t.Fatalf("expected low-stock products, got %+v", flows.restockInput)
	}

	rec = f.do(t, http.MethodPost, "/ai/restock", `{"products":[{"name":"Socks","stock":0}]}`, "")
	if rec.Code != http.StatusOK || len(flows.restockInput) != 1 || flows.restockInput[0].Name != "Socks" {
		t.Fatalf("expected posted products, got %d %+v", rec.Code, flows.restockInput)
	}
}

func TestStyleAdvice_IncludesMatchingProducts(t *testing.T) {
	flows := &stubFlows{recommendTags: []string{"formal"}}
	f := newFixture(t, func(d *Deps) { d.Flows = flows })
	rec := f.do(t, http.MethodPost, "/ai/style-advice", `{"photoDataUri":"data:image/png;base64,aGk="}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Advice   ai.StyleAdviceOutput `json:"advice"`
		Products []domain.Product     `json:"products"`
	}](t, rec)
	if body.Advice.StyleAdvice != "Go relaxed." || len(body.Products) != 1 || body.Products[0].ID != "p2" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestAIRateLimit(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Flows = &stubFlows{}
		d.AIRatePerSecond = 0.01
	})
	first := f.do(t, http.MethodPost, "/ai/chat", `{"query":"a"}`, "")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	second := f.do(t, http.MethodPost, "/ai/chat", `{"query":"b"}`, "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}
