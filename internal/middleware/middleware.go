package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/esacantik/storefront-go/internal/metrics"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(metrics *metrics.AppMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Milliseconds()

			// Get route pattern
			route := mux.CurrentRoute(r)
			routePattern := "unknown"
			if route != nil {
				if pathTemplate, err := route.GetPathTemplate(); err == nil {
					routePattern = pathTemplate
				}
			}

			ctx := r.Context()
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern),
				attribute.Int("http.status_code", rw.statusCode),
			}

			metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(metrics.WithServiceName(attrs)...))

			// Record error requests (4xx, 5xx)
			if rw.statusCode >= 400 {
				metrics.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(metrics.WithServiceName(attrs)...))
			}

			metrics.HTTPRequestDuration.Record(ctx, float64(duration), metric.WithAttributes(metrics.WithServiceName(attrs)...))

			log.Printf("%s %s %s - %d - %dms", r.Method, routePattern, r.RemoteAddr, rw.statusCode, duration)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware adds a request ID to the context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ErrorHandlerMiddleware handles panics and returns a plain 500
func ErrorHandlerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func generateRequestID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
