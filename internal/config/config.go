package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported WEATHER_PROVIDER values.
const (
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenMeteo   = "openmeteo"
)

// Supported GEOCODER values.
const (
	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"
	GeocoderOpenMeteo = "openmeteo"
)

type AppConfig struct {
	Port         string
	DatabasePath string

	// WeatherProvider selects the upstream weather API.
	WeatherProvider   string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// Geocoder selects how location names are resolved to coordinates.
	Geocoder           string
	GoogleGeocoderKey  string
	NominatimUserAgent string

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout        time.Duration
	ProviderMaxRetries int

	// BcryptCost is the work factor for stored password hashes (0 = bcrypt default).
	BcryptCost int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DatabasePath = getenvDefault("DATABASE_PATH", "weather_favorites.db")

	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", os.Getenv("API_KEY"))
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	defaultProvider := ProviderOpenMeteo
	if cfg.OpenWeatherAPIKey != "" {
		defaultProvider = ProviderOpenWeather
	}
	cfg.WeatherProvider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", defaultProvider))
	switch cfg.WeatherProvider {
	case ProviderOpenWeather:
		if cfg.OpenWeatherAPIKey == "" {
			return nil, fmt.Errorf("WEATHER_PROVIDER=%s requires API_KEY or OPENWEATHER_API_KEY", cfg.WeatherProvider)
		}
	case ProviderWeatherAPI:
		if cfg.WeatherAPIKey == "" {
			return nil, fmt.Errorf("WEATHER_PROVIDER=%s requires WEATHERAPI_API_KEY", cfg.WeatherProvider)
		}
	case ProviderOpenMeteo:
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q", cfg.WeatherProvider)
	}

	cfg.GoogleGeocoderKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.NominatimUserAgent = getenvDefault("NOMINATIM_USER_AGENT", "weather-favorites/1.0")
	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", GeocoderNominatim))
	switch cfg.Geocoder {
	case GeocoderGoogle:
		if cfg.GoogleGeocoderKey == "" {
			return nil, fmt.Errorf("GEOCODER=google requires GOOGLE_GEOCODER_API_KEY")
		}
	case GeocoderNominatim, GeocoderOpenMeteo:
	default:
		return nil, fmt.Errorf("invalid GEOCODER %q", cfg.Geocoder)
	}

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}
	cfg.HTTPTimeout = timeout

	cfg.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 0)
	if cfg.ProviderMaxRetries < 0 {
		cfg.ProviderMaxRetries = 0
	}
	cfg.BcryptCost = getenvInt("BCRYPT_COST", 0)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Printf("ERROR: ignoring invalid %s=%q: %v", key, v, err)
	}
	return def
}
