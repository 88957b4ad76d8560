package favorites

import (
	"context"
	"fmt"
	"log"

	"github.com/i474232898/weather-favorites/internal/store"
	"github.com/i474232898/weather-favorites/internal/weather"
)

// Entry status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Lister lists the favorites of a user.
type Lister interface {
	GetFavorites(ctx context.Context, userID uint) ([]store.Location, error)
}

// FavoriteWeather is one favorite with its current weather. Weather is nil
// when the lookup for that favorite failed; Error then holds the reason.
type FavoriteWeather struct {
	ID           uint             `json:"id"`
	LocationName string           `json:"location_name"`
	Weather      *weather.Summary `json:"weather"`
	Status       string           `json:"status"`
	Error        string           `json:"error,omitempty"`
}

// Service combines stored favorites with weather lookups.
type Service struct {
	favorites Lister
	gateway   weather.Gateway
}

func NewService(favorites Lister, gateway weather.Gateway) *Service {
	return &Service{
		favorites: favorites,
		gateway:   gateway,
	}
}

// WeatherForFavorite returns the current weather at locationName.
func (s *Service) WeatherForFavorite(ctx context.Context, locationName string) (weather.Summary, error) {
	return s.gateway.CurrentWeather(ctx, locationName)
}

// FavoritesWithWeather returns every favorite of userID with its current
// weather, in listing order. A failed lookup marks its own entry only; the
// call fails as a whole only when the favorites cannot be listed.
func (s *Service) FavoritesWithWeather(ctx context.Context, userID uint) ([]FavoriteWeather, error) {
	locations, err := s.favorites.GetFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites of user %d: %w", userID, err)
	}

	out := make([]FavoriteWeather, 0, len(locations))
	failed := 0
	for _, loc := range locations {
		entry := FavoriteWeather{ID: loc.ID, LocationName: loc.LocationName}

		summary, err := s.gateway.CurrentWeather(ctx, loc.LocationName)
		if err != nil {
			log.Printf("ERROR: weather for favorite %d (%s): %v", loc.ID, loc.LocationName, err)
			entry.Status = StatusError
			entry.Error = err.Error()
			failed++
		} else {
			entry.Status = StatusOK
			entry.Weather = &summary
		}
		out = append(out, entry)
	}

	log.Printf("INFO: weather for %d favorites of user %d (%d failed)", len(out), userID, failed)
	return out, nil
}
