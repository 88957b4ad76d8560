package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-favorites/internal/accounts"
	httpapi "github.com/i474232898/weather-favorites/internal/api/http"
	"github.com/i474232898/weather-favorites/internal/config"
	"github.com/i474232898/weather-favorites/internal/favorites"
	"github.com/i474232898/weather-favorites/internal/store"
	"github.com/i474232898/weather-favorites/internal/weather"
	"github.com/i474232898/weather-favorites/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Shared HTTP client for outbound geocoding and weather calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	httpCfg := providers.DefaultHTTPConfig(httpClient, cfg.ProviderMaxRetries)

	gateway, err := newGateway(cfg, httpCfg)
	if err != nil {
		log.Fatalf("failed to build weather gateway: %v", err)
	}

	favStore := store.NewFavoriteStore(db)
	services := httpapi.Services{
		DB:        db,
		Favorites: favStore,
		Accounts:  accounts.NewService(store.NewUserStore(db, cfg.BcryptCost)),
		Weather:   gateway,
		Lookups:   favorites.NewService(favStore, gateway),
	}

	app := httpapi.NewApp()
	httpapi.RegisterRoutes(app, services)

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// newGateway picks the geocoder and weather provider named in cfg.
func newGateway(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig) (*weather.Service, error) {
	var geocoder weather.Geocoder
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderKey, cfg.HTTPTimeout)
	case config.GeocoderOpenMeteo:
		geocoder = providers.NewOpenMeteoGeocoder(httpCfg)
	case config.GeocoderNominatim:
		geocoder = providers.NewNominatimGeocoder(httpCfg, cfg.NominatimUserAgent)
	default:
		return nil, fmt.Errorf("unknown geocoder %q", cfg.Geocoder)
	}

	var provider weather.Provider
	switch cfg.WeatherProvider {
	case config.ProviderOpenWeather:
		provider = providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	case config.ProviderWeatherAPI:
		provider = providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey)
	case config.ProviderOpenMeteo:
		provider = providers.NewOpenMeteoProvider(httpCfg)
	default:
		return nil, fmt.Errorf("unknown weather provider %q", cfg.WeatherProvider)
	}

	log.Printf("INFO: using %s geocoder and %s weather provider", geocoder.Name(), provider.Name())
	return weather.NewService(geocoder, provider), nil
}
