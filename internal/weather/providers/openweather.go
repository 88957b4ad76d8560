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

// OpenWeatherProvider implements weather.Provider on the OpenWeatherMap One Call 3.0 API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(httpCfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmAlert struct {
	SenderName  string `json:"sender_name"`
	Event       string `json:"event"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Description string `json:"description"`
}

func (p *OpenWeatherProvider) get(ctx context.Context, op, path string, c weather.Coordinates, extra url.Values, out interface{}) error {
	if p.apiKey == "" {
		return weather.TransportError(op, fmt.Errorf("openweather api key is not configured"))
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", coordString(c.Lat))
		values.Set("lon", coordString(c.Lon))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		for k, v := range extra {
			values[k] = v
		}

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return getJSON(ctx, op, p.httpCfg, p.circuit, buildRequest, out)
}

func (p *OpenWeatherProvider) Current(ctx context.Context, c weather.Coordinates) (weather.Conditions, error) {
	const op = "openweather current"

	var payload struct {
		Current *struct {
			Dt        int64        `json:"dt"`
			Temp      *float64     `json:"temp"`
			Humidity  float64      `json:"humidity"`
			WindSpeed float64      `json:"wind_speed"`
			Weather   []owmWeather `json:"weather"`
		} `json:"current"`
	}
	extra := url.Values{"exclude": {"minutely,hourly,daily,alerts"}}
	if err := p.get(ctx, op, "", c, extra, &payload); err != nil {
		return weather.Conditions{}, err
	}
	if payload.Current == nil {
		return weather.Conditions{}, missingField(op, "current")
	}
	if payload.Current.Temp == nil {
		return weather.Conditions{}, missingField(op, "current.temp")
	}

	desc, cond := describeOpenWeather(payload.Current.Weather)
	return weather.Conditions{
		Timestamp:   unixOrNow(payload.Current.Dt),
		Temperature: *payload.Current.Temp,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindSpeed,
		Description: desc,
		Condition:   cond,
	}, nil
}

func (p *OpenWeatherProvider) Hourly(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "openweather hourly"

	var payload struct {
		Hourly *[]struct {
			Dt        int64   `json:"dt"`
			Temp      float64 `json:"temp"`
			Humidity  float64 `json:"humidity"`
			WindSpeed float64 `json:"wind_speed"`
			Pop       float64 `json:"pop"`
			Rain      struct {
				OneH float64 `json:"1h"`
			} `json:"rain"`
			Weather []owmWeather `json:"weather"`
		} `json:"hourly"`
		Alerts []owmAlert `json:"alerts"`
	}
	extra := url.Values{"exclude": {"current,minutely,daily"}}
	if err := p.get(ctx, op, "", c, extra, &payload); err != nil {
		return nil, nil, err
	}
	if payload.Hourly == nil {
		return nil, nil, missingField(op, "hourly")
	}

	periods := make([]weather.Period, 0, len(*payload.Hourly))
	for _, h := range *payload.Hourly {
		desc, cond := describeOpenWeather(h.Weather)
		periods = append(periods, weather.Period{
			Time:          time.Unix(h.Dt, 0).UTC(),
			Temperature:   h.Temp,
			TempMin:       h.Temp,
			TempMax:       h.Temp,
			Humidity:      h.Humidity,
			WindSpeed:     h.WindSpeed,
			PrecipProb:    h.Pop * 100,
			Precipitation: h.Rain.OneH,
			Description:   desc,
			Condition:     cond,
		})
	}
	return periods, convertOpenWeatherAlerts(payload.Alerts), nil
}

func (p *OpenWeatherProvider) Daily(ctx context.Context, c weather.Coordinates) ([]weather.Period, []weather.Alert, error) {
	const op = "openweather daily"

	var payload struct {
		Daily *[]struct {
			Dt   int64 `json:"dt"`
			Temp *struct {
				Day float64 `json:"day"`
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temp"`
			Humidity  float64      `json:"humidity"`
			WindSpeed float64      `json:"wind_speed"`
			Pop       float64      `json:"pop"`
			Rain      float64      `json:"rain"`
			Weather   []owmWeather `json:"weather"`
		} `json:"daily"`
		Alerts []owmAlert `json:"alerts"`
	}
	extra := url.Values{"exclude": {"current,minutely,hourly"}}
	if err := p.get(ctx, op, "", c, extra, &payload); err != nil {
		return nil, nil, err
	}
	if payload.Daily == nil {
		return nil, nil, missingField(op, "daily")
	}

	periods := make([]weather.Period, 0, len(*payload.Daily))
	for _, d := range *payload.Daily {
		if d.Temp == nil {
			return nil, nil, missingField(op, "daily.temp")
		}
		desc, cond := describeOpenWeather(d.Weather)
		periods = append(periods, weather.Period{
			Time:          time.Unix(d.Dt, 0).UTC(),
			Temperature:   d.Temp.Day,
			TempMin:       d.Temp.Min,
			TempMax:       d.Temp.Max,
			Humidity:      d.Humidity,
			WindSpeed:     d.WindSpeed,
			PrecipProb:    d.Pop * 100,
			Precipitation: d.Rain,
			Description:   desc,
			Condition:     cond,
		})
	}
	return periods, convertOpenWeatherAlerts(payload.Alerts), nil
}

func (p *OpenWeatherProvider) DaySummary(ctx context.Context, c weather.Coordinates, date time.Time) (weather.DaySummary, error) {
	const op = "openweather day summary"

	var payload struct {
		Date        string `json:"date"`
		Temperature *struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temperature"`
		Humidity struct {
			Afternoon float64 `json:"afternoon"`
		} `json:"humidity"`
		Precipitation struct {
			Total float64 `json:"total"`
		} `json:"precipitation"`
		Wind struct {
			Max struct {
				Speed float64 `json:"speed"`
			} `json:"max"`
		} `json:"wind"`
	}
	extra := url.Values{"date": {date.UTC().Format(weather.DateLayout)}}
	if err := p.get(ctx, op, "/day_summary", c, extra, &payload); err != nil {
		return weather.DaySummary{}, err
	}
	if payload.Temperature == nil {
		return weather.DaySummary{}, missingField(op, "temperature")
	}

	return weather.DaySummary{
		Date:          payload.Date,
		TempMin:       payload.Temperature.Min,
		TempMax:       payload.Temperature.Max,
		Humidity:      payload.Humidity.Afternoon,
		Precipitation: payload.Precipitation.Total,
		WindSpeedMax:  payload.Wind.Max.Speed,
		Condition:     weather.ConditionUnknown,
	}, nil
}

func describeOpenWeather(items []owmWeather) (string, weather.Condition) {
	if len(items) == 0 {
		return "", weather.ConditionUnknown
	}
	return items[0].Description, mapOpenWeatherCondition(items[0].Main)
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}

func convertOpenWeatherAlerts(in []owmAlert) []weather.Alert {
	if len(in) == 0 {
		return nil
	}
	alerts := make([]weather.Alert, 0, len(in))
	for _, a := range in {
		alerts = append(alerts, weather.Alert{
			Event:       a.Event,
			Sender:      a.SenderName,
			Start:       time.Unix(a.Start, 0).UTC(),
			End:         time.Unix(a.End, 0).UTC(),
			Description: a.Description,
		})
	}
	return alerts
}

func unixOrNow(ts int64) time.Time {
	if ts == 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}
