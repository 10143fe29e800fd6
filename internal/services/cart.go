package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/esacantik/storefront-go/internal/catalog"
	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartService handles cart-related operations. Carts live only in memory,
// keyed by session ID, and reset when the process restarts.
type CartService struct {
	catalog *catalog.Store
	metrics *metrics.AppMetrics

	mu    sync.RWMutex
	carts map[string][]models.CartItem
}

// NewCartService creates a new cart service
func NewCartService(cat *catalog.Store, metrics *metrics.AppMetrics) *CartService {
	cs := &CartService{
		catalog: cat,
		metrics: metrics,
		carts:   make(map[string][]models.CartItem),
	}
	// Start monitoring active carts
	go cs.monitorActiveCarts()
	return cs
}

// monitorActiveCarts periodically updates the active carts gauge
func (s *CartService) monitorActiveCarts() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		s.mu.RLock()
		count := 0
		for _, items := range s.carts {
			if len(items) > 0 {
				count++
			}
		}
		s.mu.RUnlock()
		s.metrics.ActiveCartsCount.Record(ctx, int64(count), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
	}
}

// AddToCart adds one unit of a product to the session cart. Adding a product
// that is already in the cart increments its quantity; the cart never holds
// two lines for the same product ID.
func (s *CartService) AddToCart(ctx context.Context, sessionID, productID string) error {
	product, err := s.catalog.Get(productID)
	if err != nil {
		return fmt.Errorf("product not found")
	}

	s.mu.Lock()
	items := s.carts[sessionID]
	found := false
	for i := range items {
		if items[i].Product.ID == productID {
			items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		items = append(items, models.CartItem{Product: *product, Quantity: 1})
	}
	s.carts[sessionID] = items
	s.mu.Unlock()

	// Update cart items count gauge
	s.recordCartItemsCount(ctx, sessionID)

	return nil
}

// UpdateQuantity adjusts a cart line by delta. The new quantity is clamped
// at zero; a line that reaches zero is removed. An unknown product ID is a
// no-op, not an error.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, delta int) error {
	s.mu.Lock()
	items := s.carts[sessionID]
	for i := range items {
		if items[i].Product.ID != productID {
			continue
		}
		newQty := items[i].Quantity + delta
		if newQty <= 0 {
			items = append(items[:i], items[i+1:]...)
		} else {
			items[i].Quantity = newQty
		}
		break
	}
	s.carts[sessionID] = items
	s.mu.Unlock()

	// Update cart items count gauge
	s.recordCartItemsCount(ctx, sessionID)

	return nil
}

// RemoveFromCart drops a cart line outright regardless of its quantity
func (s *CartService) RemoveFromCart(ctx context.Context, sessionID, productID string) error {
	s.mu.Lock()
	items := s.carts[sessionID]
	for i := range items {
		if items[i].Product.ID == productID {
			items = append(items[:i], items[i+1:]...)
			break
		}
	}
	s.carts[sessionID] = items
	s.mu.Unlock()

	s.recordCartItemsCount(ctx, sessionID)

	return nil
}

// GetCart returns the cart with its items and derived total. The total is
// recomputed from the current items on every call, never cached.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*models.CartResponse, error) {
	s.mu.RLock()
	items := make([]models.CartItem, len(s.carts[sessionID]))
	copy(items, s.carts[sessionID])
	s.mu.RUnlock()

	var total int64
	for _, item := range items {
		total += item.Product.Price * int64(item.Quantity)
	}

	return &models.CartResponse{
		SessionID: sessionID,
		Items:     items,
		Total:     total,
	}, nil
}

// Clear empties the session cart. The checkout simulator calls this when a
// simulated order completes.
func (s *CartService) Clear(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.carts, sessionID)
	s.mu.Unlock()

	s.recordCartItemsCount(ctx, sessionID)
}

// recordCartItemsCount updates the cart items count gauge metric
func (s *CartService) recordCartItemsCount(ctx context.Context, sessionID string) {
	s.mu.RLock()
	count := 0
	for _, item := range s.carts[sessionID] {
		count += item.Quantity
	}
	s.mu.RUnlock()

	cartAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("session_id", sessionID),
	})
	log.Printf("[METRICS] Recording cart items count: session_id=%s, count=%d", sessionID, count)
	s.metrics.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(cartAttrs...))
}
