package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutService simulates the checkout flow. There is no payment provider
// and no stock check: a started checkout holds in the processing state for a
// fixed delay, then clears the cart and succeeds. The succeeded state reverts
// to idle after a display duration so a transient success notification can be
// driven off it. Checkout has no failure path.
type CheckoutService struct {
	carts   *CartService
	metrics *metrics.AppMetrics

	processingDelay time.Duration
	successDisplay  time.Duration

	mu         sync.Mutex
	states     map[string]string
	lastOrders map[string]*models.OrderSummary
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts *CartService, metrics *metrics.AppMetrics, processingDelay, successDisplay time.Duration) *CheckoutService {
	return &CheckoutService{
		carts:           carts,
		metrics:         metrics,
		processingDelay: processingDelay,
		successDisplay:  successDisplay,
		states:          make(map[string]string),
		lastOrders:      make(map[string]*models.OrderSummary),
	}
}

// StartCheckout begins a simulated checkout for the session. Starting with
// an empty cart is an explicit no-op error; starting while a checkout is
// already processing is rejected.
func (s *CheckoutService) StartCheckout(ctx context.Context, sessionID string) error {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return fmt.Errorf("cart is empty")
	}

	s.mu.Lock()
	if s.states[sessionID] == models.CheckoutProcessing {
		s.mu.Unlock()
		return fmt.Errorf("checkout already in progress")
	}
	s.states[sessionID] = models.CheckoutProcessing
	s.mu.Unlock()

	log.Printf("Checkout started: session_id=%s, items=%d, total=%d", sessionID, len(cart.Items), cart.Total)

	// Simulated payment latency. The timer always completes: there is no
	// cancellation primitive, and the transition applies even if the client
	// stopped polling.
	time.AfterFunc(s.processingDelay, func() {
		s.complete(sessionID)
	})

	return nil
}

// complete finishes the simulated checkout: snapshot the cart, clear it,
// move to succeeded and schedule the revert to idle.
func (s *CheckoutService) complete(sessionID string) {
	ctx := context.Background()

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		log.Printf("Checkout completion failed to read cart: session_id=%s: %v", sessionID, err)
		return
	}

	itemCount := 0
	for _, item := range cart.Items {
		itemCount += item.Quantity
	}

	summary := &models.OrderSummary{
		ItemCount:   itemCount,
		TotalAmount: cart.Total,
		Currency:    "IDR",
		CompletedAt: time.Now(),
	}

	s.carts.Clear(ctx, sessionID)

	s.mu.Lock()
	s.states[sessionID] = models.CheckoutSucceeded
	s.lastOrders[sessionID] = summary
	s.mu.Unlock()

	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("session_id", sessionID),
		attribute.String("currency", summary.Currency),
	})
	s.metrics.CheckoutsCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.RevenueTotal.Add(ctx, float64(summary.TotalAmount), metric.WithAttributes(attrs...))

	log.Printf("Checkout succeeded: session_id=%s, items=%d, total=%d", sessionID, itemCount, summary.TotalAmount)

	// The success state is a display timeout, nothing more. Revert only if a
	// newer checkout has not already moved the session on.
	time.AfterFunc(s.successDisplay, func() {
		s.mu.Lock()
		if s.states[sessionID] == models.CheckoutSucceeded {
			s.states[sessionID] = models.CheckoutIdle
		}
		s.mu.Unlock()
	})
}

// Status returns the current checkout state and the last completed order
// summary for the session. Sessions with no checkout history are idle.
func (s *CheckoutService) Status(sessionID string) *models.CheckoutStatusResponse {
	s.mu.Lock()
	state, ok := s.states[sessionID]
	if !ok {
		state = models.CheckoutIdle
	}
	lastOrder := s.lastOrders[sessionID]
	s.mu.Unlock()

	return &models.CheckoutStatusResponse{
		SessionID: sessionID,
		State:     state,
		LastOrder: lastOrder,
	}
}
