package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/esacantik/storefront-go/internal/catalog"
	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/models"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newTestMetrics builds the instrument set on a reader-less provider so the
// tests export nothing.
func newTestMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()

	m, err := metrics.NewAppMetrics(sdkmetric.NewMeterProvider().Meter("test"), "test")
	if err != nil {
		t.Fatalf("failed to create test metrics: %v", err)
	}
	return m
}

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()

	products := []models.Product{
		{ID: "serum", Name: "Glow Radiance Serum", Category: models.CategorySkincare, Price: 450000, Description: "Serum pencerah wajah.", Rating: 4.8, IsFeatured: true},
		{ID: "lipstick", Name: "Velvet Matte Lipstick", Category: models.CategoryMakeup, Price: 185000, Description: "Lipstik matte tahan lama.", Rating: 4.9},
		{ID: "parfum", Name: "Midnight Rose Parfum", Category: models.CategoryFragrance, Price: 1250000, Description: "Wangi mawar mewah.", Rating: 5.0},
	}

	data, err := json.Marshal(map[string]interface{}{"products": products})
	if err != nil {
		t.Fatalf("failed to marshal catalog: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	store, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return store
}

func newTestCartService(t *testing.T) *CartService {
	t.Helper()
	return NewCartService(newTestCatalog(t), newTestMetrics(t))
}
