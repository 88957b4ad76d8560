package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-favorites/internal/common"
	"github.com/i474232898/weather-favorites/internal/weather"
)

// weatherAPIForecastHorizon is how far ahead forecast.json answers; later dates use future.json.
const weatherAPIForecastHorizon = 14 * 24 * time.Hour

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewWeatherAPIProvider(httpCfg HTTPClientConfig, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("weatherapi"),
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

type weatherAPIForecastDay struct {
	Date string `json:"date"`
	Day  *struct {
		MaxTempC          float64             `json:"maxtemp_c"`
		MinTempC          float64             `json:"mintemp_c"`
		AvgTempC          float64             `json:"avgtemp_c"`
		AvgHumidity       float64             `json:"avghumidity"`
		MaxWindKph        float64             `json:"maxwind_kph"`
		TotalPrecipMm     float64             `json:"totalprecip_mm"`
		DailyChanceOfRain float64             `json:"daily_chance_of_rain"`
		Condition         weatherAPICondition `json:"condition"`
	} `json:"day"`
	Hour []struct {
		TimeEpoch    int64               `json:"time_epoch"`
		TempC        float64             `json:"temp_c"`
		Humidity     float64             `json:"humidity"`
		WindKph      float64             `json:"wind_kph"`
		PrecipMm     float64             `json:"precip_mm"`
		ChanceOfRain float64             `json:"chance_of_rain"`
		Condition    weatherAPICondition `json:"condition"`
	} `json:"hour"`
}

type weatherAPIForecastPayload struct {
	Forecast *struct {
		ForecastDay []weatherAPIForecastDay `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []struct {
			Headline  string `json:"headline"`
			Event     string `json:"event"`
			Effective string `json:"effective"`
			Expires   string `json:"expires"`
			Desc      string `json:"desc"`
		} `json:"alert"`
	} `json:"alerts"`
}

func (p *WeatherAPIProvider) get(ctx context.Context, op, endpoint string, c weather.Coordinates, extra url.Values, out interface{}) error {
	if p.apiKey == "" {
		return weather.TransportError(op, fmt.Errorf("weatherapi api key is not configured"))
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
		values.Set("q", fmt.Sprintf("%s,%s", coordString(c.Lat), coordString(c.Lon)))
		for k, v := range extra {
			values[k] = v
		}

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return getJSON(ctx, op, p.httpCfg, p.circuit, buildRequest, out)
}

func (p *WeatherAPIProvider) Current(ctx context.Context, c weather.Coordinates) (weather.Conditions, error) {
	const op = "weatherapi current"

	var payload struct {
		Current *struct {
			LastUpdatedEpoch int64               `json:"last_updated_epoch"`
			TempC            *float64            `json:"temp_c"`
			Humidity         float64             `json:"humidity"`
			WindKph          float64             `json:"wind_kph"`
			Condition        weatherAPICondition `json:"condition"`
		} `json:"current"`
	}
	if err := p.get(ctx, op, "current.json", c, nil, &payload); err != nil {
		return weather.Conditions{}, err
	}
	if payload.Current == nil {
		return weather.Conditions{}, missingField(op, "current")
	}
	if payload.Current.TempC == nil {
		return weather.Conditions{}, missingField(op, "current.temp_c")
	}

	return weather.Conditions{
		Timestamp:   unixOrNow(payload.Current.LastUpdatedEpoch),
		Temperature: *payload.Current.TempC,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   kphToMS(payload.Current.WindKph),
		Description: payload.Current.Condition.Text,
		Condition:   mapWeatherAPICondition(payload.Current.Condition.Text),
	}, nil
}

func (p *WeatherAPIProvider) forecast(ctx context.Context, op string, c weather.Coordinates) (weatherAPIForecastPayload, error) {
	var payload weatherAPIForecastPayload
	extra := url.Values{"days": {"3"}, "alerts": {"yes"}}
	if err := p.get(ctx, op, "forecast.json", c, extra, &payload); err != nil {
		return payload, err
	}
	if payload.Forecast == nil {
		return payload, missingField(op, "forecast")
	}
	return payload, nil
}

func (p *WeatherAPIProvider) Hourly(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "weatherapi hourly"

	payload, err := p.forecast(ctx, op, c)
	if err != nil {
		return nil, nil, err
	}

	var periods []weather.Period
	for _, fd := range payload.Forecast.ForecastDay {
		for _, h := range fd.Hour {
			periods = append(periods, weather.Period{
				Time:          time.Unix(h.TimeEpoch, 0).UTC(),
				Temperature:   h.TempC,
				TempMin:       h.TempC,
				TempMax:       h.TempC,
				Humidity:      h.Humidity,
				WindSpeed:     kphToMS(h.WindKph),
				PrecipProb:    h.ChanceOfRain,
				Precipitation: h.PrecipMm,
				Description:   h.Condition.Text,
				Condition:     mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}
	return periods, payload.alerts(), nil
}

func (p *WeatherAPIProvider) Daily(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "weatherapi daily"

	payload, err := p.forecast(ctx, op, c)
	if err != nil {
		return nil, nil, err
	}

	periods := make([]weather.Period, 0, len(payload.Forecast.ForecastDay))
	for _, fd := range payload.Forecast.ForecastDay {
		period, err := fd.period(op)
		if err != nil {
			return nil, nil, err
		}
		periods = append(periods, period)
	}
	return periods, payload.alerts(), nil
}

// DaySummary picks history.json for past dates, future.json beyond the
// forecast horizon and forecast.json in between.
func (p *WeatherAPIProvider) DaySummary(ctx context.Context, c weather.Coordinates, date time.Time) (weather.DaySummary, error) {
	const op = "weatherapi day summary"

	today := p.now().UTC().Truncate(24 * time.Hour)
	day := date.UTC().Truncate(24 * time.Hour)

	endpoint := "forecast.json"
	extra := url.Values{"dt": {day.Format(weather.DateLayout)}}
	switch {
	case day.Before(today):
		endpoint = "history.json"
	case day.Sub(today) > weatherAPIForecastHorizon:
		endpoint = "future.json"
	default:
		extra.Set("days", "14")
	}

	var payload weatherAPIForecastPayload
	if err := p.get(ctx, op, endpoint, c, extra, &payload); err != nil {
		return weather.DaySummary{}, err
	}
	if payload.Forecast == nil || len(payload.Forecast.ForecastDay) == 0 {
		return weather.DaySummary{}, missingField(op, "forecast.forecastday")
	}

	fd := payload.Forecast.ForecastDay[0]
	for _, candidate := range payload.Forecast.ForecastDay {
		if candidate.Date == day.Format(weather.DateLayout) {
			fd = candidate
			break
		}
	}

	period, err := fd.period(op)
	if err != nil {
		return weather.DaySummary{}, err
	}
	return weather.DaySummary{
		Date:          fd.Date,
		TempMin:       period.TempMin,
		TempMax:       period.TempMax,
		Humidity:      period.Humidity,
		Precipitation: period.Precipitation,
		WindSpeedMax:  period.WindSpeed,
		Condition:     period.Condition,
	}, nil
}

func (fd weatherAPIForecastDay) period(op string) (weather.Period, error) {
	if fd.Day == nil {
		return weather.Period{}, missingField(op, "forecastday.day")
	}
	day, err := time.Parse(weather.DateLayout, fd.Date)
	if err != nil {
		return weather.Period{}, weather.SchemaError(op, fmt.Errorf("parse forecast date: %w", err))
	}
	return weather.Period{
		Time:          day,
		Temperature:   fd.Day.AvgTempC,
		TempMin:       fd.Day.MinTempC,
		TempMax:       fd.Day.MaxTempC,
		Humidity:      fd.Day.AvgHumidity,
		WindSpeed:     kphToMS(fd.Day.MaxWindKph),
		PrecipProb:    fd.Day.DailyChanceOfRain,
		Precipitation: fd.Day.TotalPrecipMm,
		Description:   fd.Day.Condition.Text,
		Condition:     mapWeatherAPICondition(fd.Day.Condition.Text),
	}, nil
}

func (p weatherAPIForecastPayload) alerts() []weather.Alert {
	if len(p.Alerts.Alert) == 0 {
		return nil
	}
	alerts := make([]weather.Alert, 0, len(p.Alerts.Alert))
	for _, a := range p.Alerts.Alert {
		start, _ := time.Parse(time.RFC3339, a.Effective)
		end, _ := time.Parse(time.RFC3339, a.Expires)
		desc := a.Desc
		if desc == "" {
			desc = a.Headline
		}
		alerts = append(alerts, weather.Alert{
			Event:       a.Event,
			Start:       start.UTC(),
			End:         end.UTC(),
			Description: desc,
		})
	}
	return alerts
}

// kphToMS converts wind from kph to m/s (approx).
func kphToMS(kph float64) float64 {
	return kph / 3.6
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAnyFold(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAnyFold(text, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.HasAnyFold(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAnyFold(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAnyFold(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAnyFold(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

