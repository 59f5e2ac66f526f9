package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"shopeasy/internal/domain"
)

// SampleCatalog is the fixed product list the storefront ships with.
func SampleCatalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Wireless Headphones", Price: decimal.RequireFromString("99.99"), Category: "audio",
			Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=300&h=200&fit=crop",
			Description: "Premium quality wireless headphones with noise cancellation"},
		{ID: 2, Name: "Smart Watch", Price: decimal.RequireFromString("199.99"), Category: "electronics",
			Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=300&h=200&fit=crop",
			Description: "Advanced smartwatch with health tracking features"},
		{ID: 3, Name: "Laptop Stand", Price: decimal.RequireFromString("49.99"), Category: "accessories",
			Image:       "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=300&h=200&fit=crop",
			Description: "Ergonomic laptop stand for better posture"},
		{ID: 4, Name: "Bluetooth Speaker", Price: decimal.RequireFromString("79.99"), Category: "audio",
			Image:       "https://images.unsplash.com/photo-1608043152269-423dbba4e7e1?w=300&h=200&fit=crop",
			Description: "Portable Bluetooth speaker with rich sound quality"},
		{ID: 5, Name: "Phone Case", Price: decimal.RequireFromString("24.99"), Category: "accessories",
			Image:       "https://images.unsplash.com/photo-1556656793-08538906a9f8?w=300&h=200&fit=crop",
			Description: "Durable phone case with premium protection"},
		{ID: 6, Name: "USB Cable", Price: decimal.RequireFromString("14.99"), Category: "accessories",
			Image:       "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=300&h=200&fit=crop",
			Description: "High-speed USB-C cable for fast charging"},
	}
}

// FilterProducts keeps, in input order, the products matching all of query
// (case-insensitive substring of name or description, taken as is),
// category ("" = any) and bracket.
func FilterProducts(products []domain.Product, query, category string, bracket domain.PriceBracket) []domain.Product {
	q := strings.ToLower(query)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if !bracket.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}
	return out
}

type CatalogService struct {
	products []domain.Product
	byID     map[int]domain.Product
}

func NewCatalogService(products []domain.Product) *CatalogService {
	s := &CatalogService{products: products, byID: make(map[int]domain.Product, len(products))}
	for _, p := range products {
		s.byID[p.ID] = p
	}
	return s
}

func (s *CatalogService) All() []domain.Product {
	return append([]domain.Product(nil), s.products...)
}

func (s *CatalogService) Get(id int) (domain.Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Categories lists the distinct categories, sorted.
func (s *CatalogService) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (s *CatalogService) Search(query, category string, bracket domain.PriceBracket) []domain.Product {
	return FilterProducts(s.products, query, category, bracket)
}

func (s *CatalogService) Count() int { return len(s.products) }
