package models

import "time"

// Product categories. "All" is the filter sentinel, not a product category.
const (
	CategoryAll       = "All"
	CategorySkincare  = "Skincare"
	CategoryMakeup    = "Makeup"
	CategoryFragrance = "Fragrance"
	CategoryHaircare  = "Haircare"
)

// Categories lists the filter options in display order.
var Categories = []string{CategoryAll, CategorySkincare, CategoryMakeup, CategoryFragrance, CategoryHaircare}

// Product represents an immutable catalog record. Prices are whole Rupiah.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Rating      float64 `json:"rating"`
	IsFeatured  bool    `json:"is_featured,omitempty"`
}

// CartItem is a product line in a cart. Quantity is always positive; a line
// whose quantity reaches zero is removed, never kept at zero.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Checkout states for the simulated checkout flow.
const (
	CheckoutIdle       = "idle"
	CheckoutProcessing = "processing"
	CheckoutSucceeded  = "succeeded"
)

// OrderSummary describes the last completed simulated checkout.
type OrderSummary struct {
	ItemCount   int       `json:"item_count"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	CompletedAt time.Time `json:"completed_at"`
}

// Message is one turn in a chat transcript.
type Message struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// CartResponse represents a cart with its items and derived total
type CartResponse struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	Total     int64      `json:"total"`
}

// CheckoutStatusResponse reports the checkout state machine for a session
type CheckoutStatusResponse struct {
	SessionID string        `json:"session_id"`
	State     string        `json:"state"`
	LastOrder *OrderSummary `json:"last_order,omitempty"`
}

// ChatResponse represents a chat transcript with session flags
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Enabled   bool      `json:"enabled"`
	Pending   bool      `json:"pending"`
	Messages  []Message `json:"messages"`
}

// AddToCartRequest represents a request to add one unit of a product
type AddToCartRequest struct {
	ProductID string `json:"product_id"`
}

// UpdateQuantityRequest represents a request to adjust a cart line by delta
type UpdateQuantityRequest struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}

// RemoveFromCartRequest represents a request to drop a cart line outright
type RemoveFromCartRequest struct {
	ProductID string `json:"product_id"`
}

// SendMessageRequest represents a chat turn from the user
type SendMessageRequest struct {
	Text string `json:"text"`
}
