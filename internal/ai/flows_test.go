package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
)

const testPhoto = "data:image/png;base64,iVBORw0KGgo="

type stubGenerator struct {
	output  string
	err     error
	lastReq Request
	calls   int
}

func (s *stubGenerator) Generate(_ context.Context, req Request) (json.RawMessage, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.output), nil
}

func TestChatDiscovery(t *testing.T) {
	gen := &stubGenerator{output: `{"response":"Try a white hoodie with black joggers."}`}
	flows := NewFlows(gen)

	out, err := flows.ChatDiscovery(context.Background(), ChatInput{Query: "something for college"})
	if err != nil {
		t.Fatalf("ChatDiscovery: %v", err)
	}
	if out.Response == "" {
		t.Fatalf("expected response")
	}
	if gen.lastReq.Flow != "chat" || !strings.Contains(gen.lastReq.Prompt, "Customer query: something for college") {
		t.Fatalf("unexpected request %+v", gen.lastReq)
	}
}

func TestChatDiscoveryRequiresQuery(t *testing.T) {
	gen := &stubGenerator{}
	_, err := NewFlows(gen).ChatDiscovery(context.Background(), ChatInput{Query: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not be called on invalid input")
	}
}

func TestSuggestOutfitVariants(t *testing.T) {
	gen := &stubGenerator{output: `{"mainItem":"Maroon kurti","complementary":["Beige palazzo","Gold jhumkas"]}`}
	flows := NewFlows(gen)
	ctx := context.Background()

	out, err := flows.SuggestOutfit(ctx, ByDescription("maroon cotton kurti"))
	if err != nil {
		t.Fatalf("SuggestOutfit by description: %v", err)
	}
	if out.MainItem != "Maroon kurti" || len(out.Complementary) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(gen.lastReq.Media) != 0 || !strings.Contains(gen.lastReq.Prompt, "maroon cotton kurti") {
		t.Fatalf("unexpected request %+v", gen.lastReq)
	}

	if _, err := flows.SuggestOutfit(ctx, ByPhoto(testPhoto)); err != nil {
		t.Fatalf("SuggestOutfit by photo: %v", err)
	}
	if len(gen.lastReq.Media) != 1 || gen.lastReq.Media[0].URL != testPhoto {
		t.Fatalf("expected photo media, got %+v", gen.lastReq.Media)
	}
}

func TestSuggestOutfitRejectsInvalidInput(t *testing.T) {
	gen := &stubGenerator{}
	flows := NewFlows(gen)
	ctx := context.Background()

	cases := map[string]OutfitInput{
		"empty":       {},
		"blank text":  ByDescription("  "),
		"not a uri":   ByPhoto("https://example.com/shirt.png"),
		"both fields": {photo: testPhoto, description: "shirt"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := flows.SuggestOutfit(ctx, in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not be called, got %d calls", gen.calls)
	}
}

func TestSuggestOutfitValidatesOutput(t *testing.T) {
	gen := &stubGenerator{output: `{"mainItem":"Shirt","complementary":["Belt"]}`}
	_, err := NewFlows(gen).SuggestOutfit(context.Background(), ByDescription("shirt"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for one complementary item, got %v", err)
	}
}

func TestRestockingSuggestions(t *testing.T) {
	gen := &stubGenerator{output: `[{"productName":"Wool Beanie","suggestion":"Reorder 40 units before winter."}]`}
	flows := NewFlows(gen)

	p := domain.Product{Name: "Wool Beanie", Stock: 3, Category: "Accessories", Price: 999, Tags: []string{"unisex", "winter"}}
	out, err := flows.RestockingSuggestions(context.Background(), []RestockProduct{RestockProductFrom(p)})
	if err != nil {
		t.Fatalf("RestockingSuggestions: %v", err)
	}
	if len(out) != 1 || out[0].ProductName != "Wool Beanie" {
		t.Fatalf("unexpected output %+v", out)
	}
	if !strings.Contains(gen.lastReq.Prompt, "Tags: unisex, winter") || !strings.Contains(gen.lastReq.Prompt, "Stock: 3") {
		t.Fatalf("prompt missing product data: %s", gen.lastReq.Prompt)
	}

	empty, err := flows.RestockingSuggestions(context.Background(), nil)
	if err != nil || len(empty) != 0 || gen.calls != 1 {
		t.Fatalf("empty input should short-circuit, got %v %v calls=%d", empty, err, gen.calls)
	}
}

func TestRestockingSuggestionsRejectsBadOutput(t *testing.T) {
	gen := &stubGenerator{output: `[{"productName":"","suggestion":"x"}]`}
	_, err := NewFlows(gen).RestockingSuggestions(context.Background(), []RestockProduct{{Name: "Beanie", Stock: 1}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStyleAdvice(t *testing.T) {
	gen := &stubGenerator{output: `{"facialAnalysis":{"gender":"female","age":"25-30","faceShape":"oval","mood":"happy"},"styleAdvice":"Soft pastels suit you.","recommendedProductTags":["women","silk"]}`}
	flows := NewFlows(gen)

	out, err := flows.StyleAdvice(context.Background(), StyleAdviceInput{PhotoDataURI: testPhoto})
	if err != nil {
		t.Fatalf("StyleAdvice: %v", err)
	}
	if out.FacialAnalysis.FaceShape != "oval" || len(out.RecommendedProductTags) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}

	gen.output = `{"facialAnalysis":{"gender":"female"},"styleAdvice":"x","recommendedProductTags":[]}`
	if _, err := flows.StyleAdvice(context.Background(), StyleAdviceInput{PhotoDataURI: testPhoto}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for incomplete analysis, got %v", err)
	}

	if _, err := flows.StyleAdvice(context.Background(), StyleAdviceInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing photo, got %v", err)
	}
}

func TestFlowPropagatesNetworkFailure(t *testing.T) {
	gen := &stubGenerator{err: domain.ErrNetworkFailure}
	_, err := NewFlows(gen).ChatDiscovery(context.Background(), ChatInput{Query: "hi"})
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
}
