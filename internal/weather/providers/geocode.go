package providers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-favorites/internal/common"
	"github.com/i474232898/weather-favorites/internal/weather"
)

// NominatimGeocoder resolves names with OpenStreetMap's Nominatim search API.
type NominatimGeocoder struct {
	userAgent string
	baseURL   string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewNominatimGeocoder(httpCfg HTTPClientConfig, userAgent string) *NominatimGeocoder {
	if userAgent == "" {
		userAgent = "weather-favorites/1.0"
	}
	return &NominatimGeocoder{
		userAgent: userAgent,
		baseURL:   "https://nominatim.openstreetmap.org/search",
		httpCfg:   httpCfg,
		circuit:   newCircuitBreaker("nominatim"),
	}
}

func (g *NominatimGeocoder) Name() string {
	return "nominatim"
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	const op = "nominatim geocode"

	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("q", name)
		params.Set("format", "json")
		params.Set("limit", "1")

		req, err := http.NewRequest(http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", g.userAgent)
		return req, nil
	}

	var resp []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := getJSON(ctx, op, g.httpCfg, g.circuit, buildRequest, &resp); err != nil {
		return weather.Coordinates{}, err
	}
	if len(resp) == 0 {
		return weather.Coordinates{}, weather.ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return weather.Coordinates{}, weather.SchemaError(op, fmt.Errorf("parse latitude: %w", err))
	}
	lon, err := strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return weather.Coordinates{}, weather.SchemaError(op, fmt.Errorf("parse longitude: %w", err))
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, nil
}

// OpenMeteoGeocoder resolves names with the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoGeocoder(httpCfg HTTPClientConfig) *OpenMeteoGeocoder {
	return &OpenMeteoGeocoder{
		baseURL: "https://geocoding-api.open-meteo.com/v1/search",
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openmeteo-geocoding"),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return "openmeteo"
}

func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	const op = "openmeteo geocode"

	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("name", name)
		params.Set("count", "1")
		params.Set("format", "json")
		return http.NewRequest(http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	}

	// results is omitted entirely when nothing matches.
	var resp struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := getJSON(ctx, op, g.httpCfg, g.circuit, buildRequest, &resp); err != nil {
		return weather.Coordinates{}, err
	}
	if len(resp.Results) == 0 {
		return weather.Coordinates{}, weather.ErrLocationNotFound
	}
	return weather.Coordinates{Lat: resp.Results[0].Latitude, Lon: resp.Results[0].Longitude}, nil
}

// googleKeyMu guards the package-level API key of the geocoder library.
var googleKeyMu sync.Mutex

// GoogleGeocoder resolves names with the Google Geocoding API.
// The geocoder library ignores contexts, so each lookup runs in its own
// goroutine and the caller stops waiting at the deadline.
type GoogleGeocoder struct {
	apiKey  string
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder returns a GoogleGeocoder. timeout bounds lookups whose
// context carries no deadline; zero leaves them unbounded.
func NewGoogleGeocoder(apiKey string, timeout time.Duration) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:  apiKey,
		timeout: timeout,
		circuit: newCircuitBreaker("google-geocoding"),
		lookup:  geocoder.Geocoding,
	}
}

func (g *GoogleGeocoder) Name() string {
	return "google"
}

type googleResult struct {
	loc      geocoder.Location
	notFound bool
	err      error
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, name string) (weather.Coordinates, error) {
	const op = "google geocode"

	if g.apiKey == "" {
		return weather.Coordinates{}, weather.TransportError(op, fmt.Errorf("google geocoder api key is not configured"))
	}
	if _, ok := ctx.Deadline(); !ok && g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, weather.TransportError(op, err)
	}

	done := make(chan googleResult, 1)
	go func() {
		var notFound bool
		result, err := g.circuit.Execute(func() (interface{}, error) {
			googleKeyMu.Lock()
			defer googleKeyMu.Unlock()
			geocoder.ApiKey = g.apiKey
			loc, err := g.lookup(geocoder.Address{City: name})

			if err != nil && common.HasAnyFold(err.Error(), "no results", "zero_results") {
				// Unknown places do not count against the breaker.
				notFound = true
				return geocoder.Location{}, nil
			}
			return loc, err
		})
		loc, _ := result.(geocoder.Location)
		done <- googleResult{loc: loc, notFound: notFound, err: err}
	}()

	var res googleResult
	select {
	case <-ctx.Done():
		log.Printf("ERROR: google geocode of %q abandoned: %v", name, ctx.Err())
		return weather.Coordinates{}, weather.TransportError(op, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return weather.Coordinates{}, weather.TransportError(op, res.err)
	}
	if res.notFound || (res.loc.Latitude == 0 && res.loc.Longitude == 0) {
		return weather.Coordinates{}, weather.ErrLocationNotFound
	}
	return weather.Coordinates{Lat: res.loc.Latitude, Lon: res.loc.Longitude}, nil
}
