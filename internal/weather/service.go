package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Units reported on every result. All providers are queried in metric units.
const Units = "metric"

// Service resolves location names with a Geocoder and queries a Provider.
// It implements Gateway.
type Service struct {
	geocoder Geocoder
	provider Provider
}

var _ Gateway = (*Service)(nil)

// NewService creates a new Service.
func NewService(geocoder Geocoder, provider Provider) *Service {
	return &Service{
		geocoder: geocoder,
		provider: provider,
	}
}

// Geocode resolves locationName. An unknown name yields ErrLocationNotFound,
// any other failure a *ServiceError.
func (s *Service) Geocode(ctx context.Context, locationName string) (Coordinates, error) {
	if strings.TrimSpace(locationName) == "" {
		return Coordinates{}, fmt.Errorf("%w: empty location name", ErrLocationNotFound)
	}

	c, err := s.geocoder.Geocode(ctx, locationName)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			log.Printf("ERROR: %s could not geocode %q", s.geocoder.Name(), locationName)
			return Coordinates{}, fmt.Errorf("%w: %q", ErrLocationNotFound, locationName)
		}
		var se *ServiceError
		if !errors.As(err, &se) {
			err = TransportError("geocode", err)
		}
		log.Printf("ERROR: geocoding %q via %s failed: %v", locationName, s.geocoder.Name(), err)
		return Coordinates{}, withLocation(err, locationName)
	}
	return c, nil
}

// CurrentWeather returns current conditions at locationName.
func (s *Service) CurrentWeather(ctx context.Context, locationName string) (Summary, error) {
	log.Printf("INFO: fetching current weather for %q from %s", locationName, s.provider.Name())

	c, err := s.Geocode(ctx, locationName)
	if err != nil {
		return Summary{}, err
	}

	cond, err := s.provider.Current(ctx, c)
	if err != nil {
		log.Printf("ERROR: provider %s current weather failed for %q: %v", s.provider.Name(), locationName, err)
		return Summary{}, withLocation(err, locationName)
	}

	return Summary{
		Location:    locationName,
		Coordinates: c,
		Units:       Units,
		Conditions:  cond,
	}, nil
}

// HourlyForecast returns the next hours of forecast at locationName.
func (s *Service) HourlyForecast(ctx context.Context, locationName string) (Forecast, error) {
	return s.forecast(ctx, locationName, GranularityHourly, s.provider.Hourly)
}

// DailyForecast returns the next days of forecast at locationName.
func (s *Service) DailyForecast(ctx context.Context, locationName string) (Forecast, error) {
	return s.forecast(ctx, locationName, GranularityDaily, s.provider.Daily)
}

func (s *Service) forecast(
	ctx context.Context,
	locationName string,
	granularity Granularity,
	fetch func(context.Context, Coordinates) ([]Period, []Alert, error),
) (Forecast, error) {
	log.Printf("INFO: fetching %s forecast for %q from %s", granularity, locationName, s.provider.Name())

	c, err := s.Geocode(ctx, locationName)
	if err != nil {
		return Forecast{}, err
	}

	periods, alerts, err := fetch(ctx, c)
	if err != nil {
		log.Printf("ERROR: provider %s %s forecast failed for %q: %v", s.provider.Name(), granularity, locationName, err)
		return Forecast{}, withLocation(err, locationName)
	}
	if periods == nil {
		periods = []Period{}
	}

	return Forecast{
		Location:    locationName,
		Coordinates: c,
		Granularity: granularity,
		Units:       Units,
		Periods:     periods,
		Alerts:      alerts,
	}, nil
}

// DatedForecast returns the weather of a single calendar date at locationName.
// Dates outside the provider's supported window surface as a *ServiceError.
func (s *Service) DatedForecast(ctx context.Context, locationName string, date time.Time) (DaySummary, error) {
	day := date.UTC().Format(DateLayout)
	log.Printf("INFO: fetching forecast for %q on %s from %s", locationName, day, s.provider.Name())

	c, err := s.Geocode(ctx, locationName)
	if err != nil {
		return DaySummary{}, err
	}

	sum, err := s.provider.DaySummary(ctx, c, date)
	if err != nil {
		log.Printf("ERROR: provider %s day summary failed for %q on %s: %v", s.provider.Name(), locationName, day, err)
		return DaySummary{}, withLocation(err, locationName)
	}

	sum.Location = locationName
	sum.Coordinates = c
	sum.Units = Units
	if sum.Date == "" {
		sum.Date = day
	}
	return sum, nil
}
