package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/esacantik/storefront-go/internal/models"
)

func writeCatalog(t *testing.T, products []models.Product) string {
	t.Helper()

	data, err := json.Marshal(map[string]interface{}{"products": products})
	if err != nil {
		t.Fatalf("failed to marshal catalog: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func testProducts() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Glow Radiance Serum", Category: models.CategorySkincare, Price: 450000, Description: "Serum pencerah wajah dengan ekstrak vitamin C murni.", Rating: 4.8, IsFeatured: true},
		{ID: "2", Name: "Velvet Matte Lipstick", Category: models.CategoryMakeup, Price: 185000, Description: "Lipstik matte tahan lama dengan tekstur selembut sutra.", Rating: 4.9, IsFeatured: true},
		{ID: "3", Name: "Midnight Rose Parfum", Category: models.CategoryFragrance, Price: 1250000, Description: "Wangi mawar mewah dengan amber dan vanilla.", Rating: 5.0},
		{ID: "4", Name: "Silk Hair Oil", Category: models.CategoryHaircare, Price: 320000, Description: "Minyak rambut yang diperkaya Argan Oil.", Rating: 4.7},
		{ID: "5", Name: "Hydrating Aqua Cream", Category: models.CategorySkincare, Price: 380000, Description: "Pelembab wajah berbasis air dengan hidrasi instan.", Rating: 4.6},
	}
}

func loadTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Load(writeCatalog(t, testProducts()))
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return store
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestLoad(t *testing.T) {
	store := loadTestStore(t)
	if store.Len() != 5 {
		t.Errorf("expected 5 products, got %d", store.Len())
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		if _, err := Load(writeCatalog(t, nil)); err == nil {
			t.Error("expected error for empty catalog")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		products := []models.Product{
			{ID: "1", Name: "A", Category: models.CategorySkincare, Price: 1},
			{ID: "1", Name: "B", Category: models.CategoryMakeup, Price: 2},
		}
		if _, err := Load(writeCatalog(t, products)); err == nil {
			t.Error("expected error for duplicate product id")
		}
	})
}

func TestList(t *testing.T) {
	store := loadTestStore(t)

	tests := []struct {
		name     string
		category string
		query    string
		want     []string
	}{
		{
			name:     "all categories empty query returns everything in order",
			category: models.CategoryAll,
			want:     []string{"1", "2", "3", "4", "5"},
		},
		{
			name: "empty category behaves like All",
			want: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:     "category filter",
			category: models.CategorySkincare,
			want:     []string{"1", "5"},
		},
		{
			name:     "query matches name case-insensitively",
			category: models.CategoryAll,
			query:    "SERUM",
			want:     []string{"1"},
		},
		{
			name:     "query matches description",
			category: models.CategoryAll,
			query:    "amber",
			want:     []string{"3"},
		},
		{
			name:     "query is trimmed",
			category: models.CategoryAll,
			query:    "  serum  ",
			want:     []string{"1"},
		},
		{
			name:     "category and query combine",
			category: models.CategorySkincare,
			query:    "hidrasi",
			want:     []string{"5"},
		},
		{
			name:     "no matches is an empty result, not an error",
			category: models.CategoryAll,
			query:    "tidak ada",
			want:     []string{},
		},
		{
			name:     "query outside selected category matches nothing",
			category: models.CategoryHaircare,
			query:    "lipstik",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(store.List(tt.category, tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestGet(t *testing.T) {
	store := loadTestStore(t)

	p, err := store.Get("3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Midnight Rose Parfum" {
		t.Errorf("unexpected product: %+v", p)
	}

	if _, err := store.Get("999"); err == nil {
		t.Error("expected error for unknown product id")
	}
}

func TestFeatured(t *testing.T) {
	store := loadTestStore(t)

	got := ids(store.Featured())
	want := []string{"1", "2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
