package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esacantik/storefront-go/internal/api"
	"github.com/esacantik/storefront-go/internal/catalog"
	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/esacantik/storefront-go/internal/services"
	"github.com/esacantik/storefront-go/pkg/config"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize OpenTelemetry metrics
	ctx := context.Background()
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	// Load the product catalog
	store, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	// Initialize services
	cartService := services.NewCartService(store, appMetrics)
	checkoutService := services.NewCheckoutService(cartService, appMetrics, cfg.CheckoutProcessingDelay, cfg.CheckoutSuccessDisplay)
	assistantService := services.NewAssistantService(cfg, appMetrics)

	// Initialize app
	app := api.NewApp(cfg, store, appMetrics, cartService, checkoutService, assistantService)

	// Setup router
	router := mux.NewRouter()
	app.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.AppPort)
		log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
