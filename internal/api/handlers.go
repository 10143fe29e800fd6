package api

import (
	"encoding/json"
	"net/http"

	"github.com/esacantik/storefront-go/internal/catalog"
	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/middleware"
	"github.com/esacantik/storefront-go/internal/models"
	"github.com/esacantik/storefront-go/internal/services"
	"github.com/esacantik/storefront-go/pkg/config"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// defaultSessionID is used when a client sends no session_id
const defaultSessionID = "guest"

// App holds application dependencies
type App struct {
	config           *config.Config
	catalog          *catalog.Store
	metrics          *metrics.AppMetrics
	cartService      *services.CartService
	checkoutService  *services.CheckoutService
	assistantService *services.AssistantService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	cat *catalog.Store,
	m *metrics.AppMetrics,
	cs *services.CartService,
	checkout *services.CheckoutService,
	assistant *services.AssistantService,
) *App {
	return &App{
		config:           cfg,
		catalog:          cat,
		metrics:          m,
		cartService:      cs,
		checkoutService:  checkout,
		assistantService: assistant,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// API Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/featured", a.FeaturedProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart/add", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/update", a.UpdateQuantityHandler).Methods("POST")
	api.HandleFunc("/cart/remove", a.RemoveFromCartHandler).Methods("POST")

	// Checkout
	api.HandleFunc("/checkout", a.StartCheckoutHandler).Methods("POST")
	api.HandleFunc("/checkout/status", a.CheckoutStatusHandler).Methods("GET")

	// Assistant
	api.HandleFunc("/chat", a.GetTranscriptHandler).Methods("GET")
	api.HandleFunc("/chat/send", a.SendMessageHandler).Methods("POST")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// sessionID extracts the client session token, defaulting when absent
func sessionID(r *http.Request) string {
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		return sid
	}
	return defaultSessionID
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	query := r.URL.Query().Get("q")

	products := a.catalog.List(category, query)
	writeJSON(w, http.StatusOK, products)
}

// FeaturedProductsHandler handles GET /api/v1/products/featured
func (a *App) FeaturedProductsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalog.Featured())
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	product, err := a.catalog.Get(vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	viewAttrs := a.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("product_id", product.ID),
		attribute.String("product_category", product.Category),
	})
	a.metrics.ProductsViewed.Add(r.Context(), 1, metric.WithAttributes(viewAttrs...))

	writeJSON(w, http.StatusOK, product)
}

// ListCategoriesHandler handles GET /api/v1/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Categories)
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.cartService.GetCart(r.Context(), sessionID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddToCartHandler handles POST /api/v1/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sid := sessionID(r)
	if err := a.cartService.AddToCart(r.Context(), sid, req.ProductID); err != nil {
		if err.Error() == "product not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cart, err := a.cartService.GetCart(r.Context(), sid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// UpdateQuantityHandler handles POST /api/v1/cart/update
func (a *App) UpdateQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sid := sessionID(r)
	if err := a.cartService.UpdateQuantity(r.Context(), sid, req.ProductID, req.Delta); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cart, err := a.cartService.GetCart(r.Context(), sid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCartHandler handles POST /api/v1/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveFromCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sid := sessionID(r)
	if err := a.cartService.RemoveFromCart(r.Context(), sid, req.ProductID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cart, err := a.cartService.GetCart(r.Context(), sid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// StartCheckoutHandler handles POST /api/v1/checkout
func (a *App) StartCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)

	if err := a.checkoutService.StartCheckout(r.Context(), sid); err != nil {
		if err.Error() == "cart is empty" {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err.Error() == "checkout already in progress" {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, a.checkoutService.Status(sid))
}

// CheckoutStatusHandler handles GET /api/v1/checkout/status
func (a *App) CheckoutStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.checkoutService.Status(sessionID(r)))
}

// GetTranscriptHandler handles GET /api/v1/chat
func (a *App) GetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.assistantService.Transcript(sessionID(r)))
}

// SendMessageHandler handles POST /api/v1/chat/send
func (a *App) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := a.assistantService.SendMessage(r.Context(), sessionID(r), req.Text)
	if err != nil {
		if err.Error() == "message is empty" {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err.Error() == "assistant reply still pending" {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
