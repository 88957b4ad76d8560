package weather

import (
	"context"
	"time"
)

// Geocoder resolves a place name to coordinates. It returns ErrLocationNotFound
// when the name has no match.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, name string) (Coordinates, error)
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
// Failures are reported as *ServiceError.
type Provider interface {
	Name() string
	Current(ctx context.Context, c Coordinates) (Conditions, error)
	Hourly(ctx context.Context, c Coordinates) ([]Period, []Alert, error)
	Daily(ctx context.Context, c Coordinates) ([]Period, []Alert, error)
	DaySummary(ctx context.Context, c Coordinates, date time.Time) (DaySummary, error)
}

// Gateway is the weather lookup contract used by the rest of the application.
type Gateway interface {
	Geocode(ctx context.Context, locationName string) (Coordinates, error)
	CurrentWeather(ctx context.Context, locationName string) (Summary, error)
	HourlyForecast(ctx context.Context, locationName string) (Forecast, error)
	DailyForecast(ctx context.Context, locationName string) (Forecast, error)
	DatedForecast(ctx context.Context, locationName string, date time.Time) (DaySummary, error)
}
