package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort     string
	CatalogPath string

	// Checkout simulator timings
	CheckoutProcessingDelay time.Duration
	CheckoutSuccessDisplay  time.Duration

	// Gemini assistant
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float32
	GeminiMaxOutputTokens int

	// OpenTelemetry
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPProtocol  string
	OTELExporterOTLPHeaders   string // For SigNoz Cloud: signoz-ingestion-key=<key>
	OTELExporterOTLPInsecure  bool   // true for http://, false for https://
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
	OTELResourceAttributes    string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		// .env file is optional, so we only log if there's an actual error (not just file not found)
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return &Config{
		// Application
		AppPort:     getEnv("APP_PORT", "8080"),
		CatalogPath: getEnv("CATALOG_PATH", "catalog.json"),

		// Checkout simulator
		CheckoutProcessingDelay: getEnvMillis("CHECKOUT_PROCESSING_MS", 2000),
		CheckoutSuccessDisplay:  getEnvMillis("CHECKOUT_SUCCESS_DISPLAY_MS", 5000),

		// Gemini assistant. An empty API key leaves the assistant disabled.
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiTemperature:     getEnvFloat32("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxOutputTokens: getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 1024),

		// OpenTelemetry
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPProtocol:  getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),        // For SigNoz Cloud: signoz-ingestion-key=<key>
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true), // Default true for local dev
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "esacantik-storefront"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
		OTELResourceAttributes:    getEnv("OTEL_RESOURCE_ATTRIBUTES", ""),
	}
}

// GetAppPortInt returns the application port as an integer
func (c *Config) GetAppPortInt() int {
	port, err := strconv.Atoi(c.AppPort)
	if err != nil {
		return 8080
	}
	return port
}

// AssistantEnabled reports whether a Gemini credential is configured.
func (c *Config) AssistantEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
