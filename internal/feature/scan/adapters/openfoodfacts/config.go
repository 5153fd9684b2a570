// Package openfoodfacts provides a client for the Open Food Facts product catalog API.
package openfoodfacts

import (
	"os"
	"time"
)

// DefaultBaseURL is the public Open Food Facts API endpoint.
const DefaultBaseURL = "https://world.openfoodfacts.net"

// Config holds configuration for the Open Food Facts API client.
type Config struct {
	BaseURL   string        // Base URL for the API
	UserAgent string        // Identifies this service per the API usage policy
	Timeout   time.Duration // HTTP request timeout
}

// LoadConfig loads Open Food Facts configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("OFF_BASE_URL")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := os.Getenv("OFF_USER_AGENT")
	if ua == "" {
		ua = "allergyscan_backend/1.0"
	}
	return Config{
		BaseURL:   base,
		UserAgent: ua,
		Timeout:   10 * time.Second,
	}
}
