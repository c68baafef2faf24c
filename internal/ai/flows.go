package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

type ChatInput struct {
	Query string `json:"query" validate:"required"`
}

type ChatOutput struct {
	Response string `json:"response" validate:"required"`
}

// OutfitInput is either a photo or a text description, never both.
// Build one with ByPhoto or ByDescription.
type OutfitInput struct {
	photo       string
	description string
}

// ByPhoto describes the item with a data:<mime>;base64,<data> URI.
func ByPhoto(dataURI string) OutfitInput { return OutfitInput{photo: dataURI} }

// ByDescription describes the item in words.
func ByDescription(text string) OutfitInput { return OutfitInput{description: text} }

type OutfitOutput struct {
	MainItem      string   `json:"mainItem" validate:"required"`
	Complementary []string `json:"complementary" validate:"min=2,max=3,dive,required"`
}

// RestockProduct is the product view sent for restocking analysis.
type RestockProduct struct {
	Name        string   `json:"name" validate:"required"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price" validate:"gte=0"`
	Tags        []string `json:"tags"`
}

type RestockSuggestion struct {
	ProductName string `json:"productName" validate:"required"`
	Suggestion  string `json:"suggestion" validate:"required"`
}

type StyleAdviceInput struct {
	PhotoDataURI string `json:"photoDataUri" validate:"required,datauri"`
}

type FacialAnalysis struct {
	Gender    string `json:"gender" validate:"required"`
	Age       string `json:"age" validate:"required"`
	FaceShape string `json:"faceShape" validate:"required"`
	Mood      string `json:"mood" validate:"required"`
}

type StyleAdviceOutput struct {
	FacialAnalysis         FacialAnalysis `json:"facialAnalysis"`
	StyleAdvice            string         `json:"styleAdvice" validate:"required"`
	RecommendedProductTags []string       `json:"recommendedProductTags" validate:"dive,required"`
}

// Flows exposes the storefront's prompt flows.
type Flows struct {
	gen      Generator
	validate *validator.Validate
}

func NewFlows(gen Generator) *Flows {
	return &Flows{gen: gen, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ChatDiscovery answers a free-form shopping question.
func (f *Flows) ChatDiscovery(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	in.Query = strings.TrimSpace(in.Query)
	if err := f.check(in); err != nil {
		return nil, err
	}
	var out ChatOutput
	if err := f.run(ctx, "chat", in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestOutfit proposes items that go with the one described by in.
func (f *Flows) SuggestOutfit(ctx context.Context, in OutfitInput) (*OutfitOutput, error) {
	photo, desc := in.photo, strings.TrimSpace(in.description)
	switch {
	case photo != "" && desc != "":
		return nil, fmt.Errorf("outfit: photo and description are exclusive: %w", domain.ErrValidation)
	case photo != "":
		if err := f.validate.Var(photo, "datauri"); err != nil {
			return nil, fmt.Errorf("outfit: photo must be a base64 data URI: %w", domain.ErrValidation)
		}
	case desc == "":
		return nil, fmt.Errorf("outfit: either a photo or a description must be provided: %w", domain.ErrValidation)
	}

	var media []Media
	if photo != "" {
		media = []Media{{URL: photo}}
	}
	data := struct {
		Photo       bool
		Description string
	}{Photo: photo != "", Description: desc}

	var out OutfitOutput
	if err := f.run(ctx, "outfit", data, media, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestockingSuggestions asks for reorder advice on products.
func (f *Flows) RestockingSuggestions(ctx context.Context, products []RestockProduct) ([]RestockSuggestion, error) {
	if len(products) == 0 {
		return []RestockSuggestion{}, nil
	}
	if err := f.validate.Var(products, "dive"); err != nil {
		return nil, fmt.Errorf("restock input: %v: %w", err, domain.ErrValidation)
	}
	var out []RestockSuggestion
	if err := f.run(ctx, "restock", products, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StyleAdvice analyses a face photo and recommends product tags.
func (f *Flows) StyleAdvice(ctx context.Context, in StyleAdviceInput) (*StyleAdviceOutput, error) {
	if err := f.check(in); err != nil {
		return nil, err
	}
	var out StyleAdviceOutput
	if err := f.run(ctx, "style", in, []Media{{URL: in.PhotoDataURI}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestockProductFrom converts a catalog product for RestockingSuggestions.
func RestockProductFrom(p domain.Product) RestockProduct {
	return RestockProduct{
		Name:        p.Name,
		Stock:       p.Stock,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Tags:        p.Tags,
	}
}

func (f *Flows) run(ctx context.Context, flow string, data any, media []Media, out any) error {
	var prompt bytes.Buffer
	if err := prompts.ExecuteTemplate(&prompt, flow, data); err != nil {
		return fmt.Errorf("render %s prompt: %w", flow, err)
	}
	raw, err := f.gen.Generate(ctx, Request{Flow: flow, Prompt: prompt.String(), Media: media, Format: "json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s output: %v: %w", flow, err, domain.ErrValidation)
	}
	return f.checkOutput(flow, out)
}

func (f *Flows) checkOutput(flow string, out any) error {
	var err error
	switch v := out.(type) {
	case *[]RestockSuggestion:
		err = f.validate.Var(*v, "dive")
	default:
		err = f.validate.Struct(out)
	}
	if err != nil {
		return fmt.Errorf("%s output: %v: %w", flow, err, domain.ErrValidation)
	}
	return nil
}

func (f *Flows) check(in any) error {
	if err := f.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("field %s failed %s: %w", verrs[0].Field(), verrs[0].Tag(), domain.ErrValidation)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	return nil
}
