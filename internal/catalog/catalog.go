package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/esacantik/storefront-go/internal/models"
)

// Store is the static, read-only product catalog. It is loaded once at
// startup and never mutated afterwards, so reads need no locking.
type Store struct {
	products []models.Product
	byID     map[string]models.Product
}

type catalogFile struct {
	Products []models.Product `json:"products"`
}

// Load reads the catalog from a JSON file and indexes it by product ID.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(file.Products) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no products", path)
	}

	byID := make(map[string]models.Product, len(file.Products))
	for _, p := range file.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product %q has no id", p.Name)
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %s in catalog", p.ID)
		}
		byID[p.ID] = p
	}

	log.Printf("Loaded catalog from %s: %d products", path, len(file.Products))

	return &Store{
		products: file.Products,
		byID:     byID,
	}, nil
}

// List returns the visible product subset for a category and free-text
// query. The filter is stable: catalog order is preserved, never re-sorted.
// Category "All" (or empty) matches everything; the query matches products
// whose name or description contains it case-insensitively.
func (s *Store) List(category, query string) []models.Product {
	query = strings.ToLower(strings.TrimSpace(query))

	results := []models.Product{}
	for _, p := range s.products {
		if category != "" && category != models.CategoryAll && p.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		results = append(results, p)
	}
	return results
}

// Get returns a product by ID
func (s *Store) Get(id string) (*models.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("product not found")
	}
	return &p, nil
}

// Featured returns the products flagged for the hero rail, in catalog order
func (s *Store) Featured() []models.Product {
	results := []models.Product{}
	for _, p := range s.products {
		if p.IsFeatured {
			results = append(results, p)
		}
	}
	return results
}

// Len returns the catalog size
func (s *Store) Len() int {
	return len(s.products)
}
