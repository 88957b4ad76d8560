package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-favorites/internal/weather"
)

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(httpCfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) get(ctx context.Context, op string, c weather.Coordinates, extra url.Values, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", coordString(c.Lat))
		values.Set("longitude", coordString(c.Lon))
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "GMT")
		for k, v := range extra {
			values[k] = v
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return getJSON(ctx, op, p.httpCfg, p.circuit, buildRequest, out)
}

func (p *OpenMeteoProvider) Current(ctx context.Context, c weather.Coordinates) (weather.Conditions, error) {
	const op = "openmeteo current"

	var payload struct {
		Current *struct {
			Time        string   `json:"time"`
			Temperature *float64 `json:"temperature_2m"`
			Humidity    float64  `json:"relative_humidity_2m"`
			WindSpeed   float64  `json:"wind_speed_10m"`
			WeatherCode int      `json:"weather_code"`
		} `json:"current"`
	}
	extra := url.Values{"current": {"temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"}}
	if err := p.get(ctx, op, c, extra, &payload); err != nil {
		return weather.Conditions{}, err
	}
	if payload.Current == nil {
		return weather.Conditions{}, missingField(op, "current")
	}
	if payload.Current.Temperature == nil {
		return weather.Conditions{}, missingField(op, "current.temperature_2m")
	}

	ts, err := time.Parse(openMeteoTimeLayout, payload.Current.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	return weather.Conditions{
		Timestamp:   ts.UTC(),
		Temperature: *payload.Current.Temperature,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindSpeed,
		Description: describeWMOCode(payload.Current.WeatherCode),
		Condition:   mapOpenMeteoCondition(payload.Current.WeatherCode),
	}, nil
}

type openMeteoHourly struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature_2m"`
	Humidity      []float64 `json:"relative_humidity_2m"`
	WindSpeed     []float64 `json:"wind_speed_10m"`
	PrecipProb    []float64 `json:"precipitation_probability"`
	Precipitation []float64 `json:"precipitation"`
	WeatherCode   []int     `json:"weather_code"`
}

const openMeteoHourlyFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation_probability,precipitation,weather_code"

func (h *openMeteoHourly) periods(op string) ([]weather.Period, error) {
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.Humidity) != n || len(h.WindSpeed) != n ||
		len(h.PrecipProb) != n || len(h.Precipitation) != n || len(h.WeatherCode) != n {
		return nil, weather.SchemaError(op, fmt.Errorf("hourly series have mismatched lengths"))
	}

	periods := make([]weather.Period, 0, n)
	for i := range h.Time {
		ts, err := time.Parse(openMeteoTimeLayout, h.Time[i])
		if err != nil {
			return nil, weather.SchemaError(op, fmt.Errorf("parse hourly time: %w", err))
		}
		periods = append(periods, weather.Period{
			Time:          ts.UTC(),
			Temperature:   h.Temperature[i],
			TempMin:       h.Temperature[i],
			TempMax:       h.Temperature[i],
			Humidity:      h.Humidity[i],
			WindSpeed:     h.WindSpeed[i],
			PrecipProb:    h.PrecipProb[i],
			Precipitation: h.Precipitation[i],
			Description:   describeWMOCode(h.WeatherCode[i]),
			Condition:     mapOpenMeteoCondition(h.WeatherCode[i]),
		})
	}
	return periods, nil
}

func (p *OpenMeteoProvider) Hourly(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "openmeteo hourly"

	var payload struct {
		Hourly *openMeteoHourly `json:"hourly"`
	}
	extra := url.Values{
		"hourly":        {openMeteoHourlyFields},
		"forecast_days": {"2"},
	}
	if err := p.get(ctx, op, c, extra, &payload); err != nil {
		return nil, nil, err
	}
	if payload.Hourly == nil {
		return nil, nil, missingField(op, "hourly")
	}

	periods, err := payload.Hourly.periods(op)
	if err != nil {
		return nil, nil, err
	}
	return periods, nil, nil
}

func (p *OpenMeteoProvider) Daily(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "openmeteo daily"

	var payload struct {
		Daily *struct {
			Time          []string  `json:"time"`
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			Precipitation []float64 `json:"precipitation_sum"`
			PrecipProb    []float64 `json:"precipitation_probability_max"`
			WindSpeed     []float64 `json:"wind_speed_10m_max"`
			WeatherCode   []int     `json:"weather_code"`
		} `json:"daily"`
	}
	extra := url.Values{
		"daily": {"temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,weather_code"},
	}
	if err := p.get(ctx, op, c, extra, &payload); err != nil {
		return nil, nil, err
	}
	d := payload.Daily
	if d == nil {
		return nil, nil, missingField(op, "daily")
	}

	n := len(d.Time)
	if len(d.TempMax) != n || len(d.TempMin) != n || len(d.Precipitation) != n ||
		len(d.PrecipProb) != n || len(d.WindSpeed) != n || len(d.WeatherCode) != n {
		return nil, nil, weather.SchemaError(op, fmt.Errorf("daily series have mismatched lengths"))
	}

	periods := make([]weather.Period, 0, n)
	for i := range d.Time {
		day, err := time.Parse(weather.DateLayout, d.Time[i])
		if err != nil {
			return nil, nil, weather.SchemaError(op, fmt.Errorf("parse daily time: %w", err))
		}
		periods = append(periods, weather.Period{
			Time:          day,
			Temperature:   (d.TempMax[i] + d.TempMin[i]) / 2,
			TempMin:       d.TempMin[i],
			TempMax:       d.TempMax[i],
			WindSpeed:     d.WindSpeed[i],
			PrecipProb:    d.PrecipProb[i],
			Precipitation: d.Precipitation[i],
			Description:   describeWMOCode(d.WeatherCode[i]),
			Condition:     mapOpenMeteoCondition(d.WeatherCode[i]),
		})
	}
	return periods, nil, nil
}

// DaySummary aggregates the hourly series of a single date. Open-Meteo serves
// roughly three months into the past and sixteen days ahead; other dates are
// rejected upstream.
func (p *OpenMeteoProvider) DaySummary(ctx context.Context, c weather.Coordinates, date time.Time) (weather.DaySummary, error) {
	const op = "openmeteo day summary"

	day := date.UTC().Format(weather.DateLayout)
	var payload struct {
		Hourly *openMeteoHourly `json:"hourly"`
	}
	extra := url.Values{
		"hourly":     {openMeteoHourlyFields},
		"start_date": {day},
		"end_date":   {day},
	}
	if err := p.get(ctx, op, c, extra, &payload); err != nil {
		return weather.DaySummary{}, err
	}
	if payload.Hourly == nil {
		return weather.DaySummary{}, missingField(op, "hourly")
	}

	periods, err := payload.Hourly.periods(op)
	if err != nil {
		return weather.DaySummary{}, err
	}
	if len(periods) == 0 {
		return weather.DaySummary{}, missingField(op, "hourly.time")
	}
	return weather.AggregatePeriods(date, periods), nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "mainly clear"
	case code == 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
