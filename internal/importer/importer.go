package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products.
//
// Expected header: id,name,category,price,stock,tags,description,image,aiHint,deal
// plus the optional columns relatedItems, views, wishlistCount and timeSpent.
// price is in minor units; tags and relatedItems are ';'-separated.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	title       cases.Caser
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		title:       cases.Title(language.English),
	}
}

// Run parses CSV rows and upserts one product per row. It stops at the first
// invalid row and reports how many products were saved before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}

		p, err := i.parseRow(record, index)
		if err != nil {
			line, _ := i.reader.FieldPos(0)
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := i.productRepo.Upsert(ctx, p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.ID, err)
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		ID:          pick(record, index, "id"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Image:       pick(record, index, "image"),
		AIHint:      pick(record, index, "aiHint"),
		Tags:        splitList(pick(record, index, "tags")),
	}
	priceStr := pick(record, index, "price")
	if p.ID == "" || p.Name == "" || priceStr == "" {
		return domain.Product{}, fmt.Errorf("invalid product row (missing id, name or price) for id %q", p.ID)
	}

	price, err := strconv.ParseInt(priceStr, 10, 64)
	if err != nil || price < 0 {
		return domain.Product{}, fmt.Errorf("invalid price for id %q: %s", p.ID, priceStr)
	}
	p.Price = price

	if s := pick(record, index, "stock"); s != "" {
		stock, err := strconv.Atoi(s)
		if err != nil || stock < 0 {
			return domain.Product{}, fmt.Errorf("invalid stock for id %q: %s", p.ID, s)
		}
		p.Stock = stock
	}
	if c := pick(record, index, "category"); c != "" {
		p.Category = i.title.String(strings.ToLower(c))
	}
	if d := pick(record, index, "deal"); d != "" {
		p.Deal = &d
	}
	if related := splitList(pick(record, index, "relatedItems")); len(related) > 0 {
		p.RelatedItems = related
	}
	for _, m := range []struct {
		column string
		dst    **int64
	}{
		{"views", &p.Views},
		{"wishlistCount", &p.WishlistCount},
		{"timeSpent", &p.TimeSpent},
	} {
		s := pick(record, index, m.column)
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.Product{}, fmt.Errorf("invalid %s for id %q: %s", m.column, p.ID, s)
		}
		*m.dst = &v
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
