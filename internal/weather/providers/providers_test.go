package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-favorites/internal/weather"
)

var boston = weather.Coordinates{Lat: 42.3601, Lon: -71.0589}

func testHTTPConfig() HTTPClientConfig {
	return DefaultHTTPConfig(&http.Client{Timeout: 5 * time.Second}, 0)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func requireServiceError(t *testing.T, err error, kind weather.ErrorKind) *weather.ServiceError {
	t.Helper()

	var se *weather.ServiceError
	require.True(t, errors.As(err, &se), "expected *weather.ServiceError, got %v", err)
	assert.Equal(t, kind, se.Kind)
	return se
}

func TestOpenWeatherCurrent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "42.3601", q.Get("lat"))
		assert.Equal(t, "-71.0589", q.Get("lon"))
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "minutely,hourly,daily,alerts", q.Get("exclude"))

		writeJSON(w, `{"current":{"dt":1700000000,"temp":21.5,"humidity":40,"wind_speed":3.2,
			"weather":[{"main":"Clouds","description":"broken clouds"}]}}`)
	})

	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), boston)
	require.NoError(t, err)
	assert.Equal(t, 21.5, got.Temperature)
	assert.Equal(t, 40.0, got.Humidity)
	assert.Equal(t, 3.2, got.WindSpeed)
	assert.Equal(t, "broken clouds", got.Description)
	assert.Equal(t, weather.ConditionCloudy, got.Condition)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.Timestamp)
}

func TestOpenWeatherCurrentMissingFields(t *testing.T) {
	var dataSet = []struct {
		name string
		body string
	}{
		{"no current", `{"lat":42.36}`},
		{"no temperature", `{"current":{"humidity":40}}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range dataSet {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
			p.baseURL = srv.URL

			_, err := p.Current(context.Background(), boston)
			se := requireServiceError(t, err, weather.KindSchema)
			assert.False(t, se.Retryable())
		})
	}
}

func TestOpenWeatherServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	_, err := p.Current(context.Background(), boston)
	se := requireServiceError(t, err, weather.KindTransport)
	assert.True(t, se.Retryable())
}

func TestOpenWeatherMissingKey(t *testing.T) {
	p := NewOpenWeatherProvider(testHTTPConfig(), "")

	_, err := p.Current(context.Background(), boston)
	requireServiceError(t, err, weather.KindTransport)
}

func TestOpenWeatherDaily(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "current,minutely,hourly", r.URL.Query().Get("exclude"))
		writeJSON(w, `{
			"daily":[
				{"dt":1700049600,"temp":{"day":10,"min":4,"max":12},"humidity":55,"wind_speed":5,"pop":0.4,"rain":1.5,
				 "weather":[{"main":"Rain","description":"light rain"}]},
				{"dt":1700136000,"temp":{"day":8,"min":2,"max":9},"humidity":60,"wind_speed":4,"pop":0,
				 "weather":[{"main":"Clear","description":"clear sky"}]}
			],
			"alerts":[{"sender_name":"NWS","event":"Wind Advisory","start":1700049600,"end":1700078400,"description":"Gusty"}]
		}`)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	periods, alerts, err := p.Daily(context.Background(), boston)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 4.0, periods[0].TempMin)
	assert.Equal(t, 12.0, periods[0].TempMax)
	assert.InDelta(t, 40.0, periods[0].PrecipProb, 0.001)
	assert.Equal(t, weather.ConditionRain, periods[0].Condition)
	assert.Equal(t, weather.ConditionClear, periods[1].Condition)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Wind Advisory", alerts[0].Event)
	assert.Equal(t, "NWS", alerts[0].Sender)
}

func TestOpenWeatherHourlyMissing(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"timezone":"America/New_York"}`)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	_, _, err := p.Hourly(context.Background(), boston)
	requireServiceError(t, err, weather.KindSchema)
}

func TestOpenWeatherDaySummary(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/day_summary", r.URL.Path)
		assert.Equal(t, "2024-09-10", r.URL.Query().Get("date"))
		writeJSON(w, `{"date":"2024-09-10","temperature":{"min":15.2,"max":24.8},
			"humidity":{"afternoon":48},"precipitation":{"total":2.1},"wind":{"max":{"speed":6.3}}}`)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	date := time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)
	got, err := p.DaySummary(context.Background(), boston, date)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-10", got.Date)
	assert.Equal(t, 15.2, got.TempMin)
	assert.Equal(t, 24.8, got.TempMax)
	assert.Equal(t, 48.0, got.Humidity)
	assert.Equal(t, 2.1, got.Precipitation)
	assert.Equal(t, 6.3, got.WindSpeedMax)
}

func TestOpenWeatherDaySummaryOutOfRange(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, `{"cod":"400","message":"date out of range"}`)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	_, err := p.DaySummary(context.Background(), boston, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC))
	requireServiceError(t, err, weather.KindTransport)
}

func TestOpenMeteoCurrent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "42.3601", q.Get("latitude"))
		assert.Equal(t, "ms", q.Get("wind_speed_unit"))
		writeJSON(w, `{"current":{"time":"2024-01-15T12:00","temperature_2m":-2.5,
			"relative_humidity_2m":80,"wind_speed_10m":4.1,"weather_code":71}}`)
	})
	p := NewOpenMeteoProvider(testHTTPConfig())
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), boston)
	require.NoError(t, err)
	assert.Equal(t, -2.5, got.Temperature)
	assert.Equal(t, weather.ConditionSnow, got.Condition)
	assert.Equal(t, "snow", got.Description)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), got.Timestamp)
}

func TestOpenMeteoHourlyMismatchedSeries(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"hourly":{"time":["2024-01-15T00:00","2024-01-15T01:00"],"temperature_2m":[1],
			"relative_humidity_2m":[1,2],"wind_speed_10m":[1,2],"precipitation_probability":[1,2],
			"precipitation":[0,0],"weather_code":[0,0]}}`)
	})
	p := NewOpenMeteoProvider(testHTTPConfig())
	p.baseURL = srv.URL

	_, _, err := p.Hourly(context.Background(), boston)
	requireServiceError(t, err, weather.KindSchema)
}

func TestOpenMeteoDaySummary(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-01-15", q.Get("start_date"))
		assert.Equal(t, "2024-01-15", q.Get("end_date"))
		writeJSON(w, `{"hourly":{
			"time":["2024-01-15T00:00","2024-01-15T12:00","2024-01-15T18:00"],
			"temperature_2m":[-3,4,1],
			"relative_humidity_2m":[90,60,75],
			"wind_speed_10m":[2,7,3],
			"precipitation_probability":[10,80,40],
			"precipitation":[0,1.2,0.3],
			"weather_code":[61,61,3]}}`)
	})
	p := NewOpenMeteoProvider(testHTTPConfig())
	p.baseURL = srv.URL

	got, err := p.DaySummary(context.Background(), boston, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", got.Date)
	assert.Equal(t, -3.0, got.TempMin)
	assert.Equal(t, 4.0, got.TempMax)
	assert.InDelta(t, 75.0, got.Humidity, 0.001)
	assert.InDelta(t, 1.5, got.Precipitation, 0.001)
	assert.Equal(t, 7.0, got.WindSpeedMax)
	assert.Equal(t, weather.ConditionRain, got.Condition)
}

func TestWeatherAPICurrent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "42.3601,-71.0589", r.URL.Query().Get("q"))
		writeJSON(w, `{"current":{"last_updated_epoch":1700000000,"temp_c":18,"humidity":50,"wind_kph":36,
			"condition":{"text":"Patchy rain possible"}}}`)
	})
	p := NewWeatherAPIProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	got, err := p.Current(context.Background(), boston)
	require.NoError(t, err)
	assert.Equal(t, 18.0, got.Temperature)
	assert.InDelta(t, 10.0, got.WindSpeed, 0.001)
	assert.Equal(t, weather.ConditionRain, got.Condition)
}

func TestWeatherAPIDaySummaryEndpoint(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	var dataSet = []struct {
		name     string
		date     time.Time
		endpoint string
	}{
		{"past date", now.AddDate(0, 0, -3), "/history.json"},
		{"today", now, "/forecast.json"},
		{"next week", now.AddDate(0, 0, 7), "/forecast.json"},
		{"far future", now.AddDate(0, 0, 30), "/future.json"},
	}

	for _, tt := range dataSet {
		t.Run(tt.name, func(t *testing.T) {
			day := tt.date.Format(weather.DateLayout)
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.endpoint, r.URL.Path)
				assert.Equal(t, day, r.URL.Query().Get("dt"))
				writeJSON(w, `{"forecast":{"forecastday":[{"date":"`+day+`","day":{"maxtemp_c":25,"mintemp_c":14,
					"avgtemp_c":20,"avghumidity":65,"maxwind_kph":18,"totalprecip_mm":0.4,
					"condition":{"text":"Sunny"}}}]}}`)
			})
			p := NewWeatherAPIProvider(testHTTPConfig(), "secret")
			p.baseURL = srv.URL
			p.now = func() time.Time { return now }

			got, err := p.DaySummary(context.Background(), boston, tt.date)
			require.NoError(t, err)
			assert.Equal(t, day, got.Date)
			assert.Equal(t, 14.0, got.TempMin)
			assert.Equal(t, 25.0, got.TempMax)
			assert.InDelta(t, 5.0, got.WindSpeedMax, 0.001)
			assert.Equal(t, weather.ConditionClear, got.Condition)
		})
	}
}

func TestWeatherAPIDailyMissingForecast(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"location":{"name":"Boston"}}`)
	})
	p := NewWeatherAPIProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	_, _, err := p.Daily(context.Background(), boston)
	requireServiceError(t, err, weather.KindSchema)
}

func TestNominatimGeocode(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Boston", r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		writeJSON(w, `[{"lat":"42.3554334","lon":"-71.060511"}]`)
	})
	g := NewNominatimGeocoder(testHTTPConfig(), "test-agent")
	g.baseURL = srv.URL

	got, err := g.Geocode(context.Background(), "Boston")
	require.NoError(t, err)
	assert.InDelta(t, 42.3554334, got.Lat, 1e-9)
	assert.InDelta(t, -71.060511, got.Lon, 1e-9)
}

func TestNominatimGeocodeNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[]`)
	})
	g := NewNominatimGeocoder(testHTTPConfig(), "test-agent")
	g.baseURL = srv.URL

	_, err := g.Geocode(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestOpenMeteoGeocodeNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"generationtime_ms":0.5}`)
	})
	g := NewOpenMeteoGeocoder(testHTTPConfig())
	g.baseURL = srv.URL

	_, err := g.Geocode(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestGoogleGeocode(t *testing.T) {
	g := NewGoogleGeocoder("key", time.Second)
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		assert.Equal(t, "Boston", a.City)
		return geocoder.Location{Latitude: 42.36, Longitude: -71.06}, nil
	}

	got, err := g.Geocode(context.Background(), "Boston")
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 42.36, Lon: -71.06}, got)
}

func TestGoogleGeocodeErrors(t *testing.T) {
	g := NewGoogleGeocoder("key", time.Second)

	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("No results found.")
	}
	_, err := g.Geocode(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)

	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("You are over your quota.")
	}
	_, err = g.Geocode(context.Background(), "Boston")
	requireServiceError(t, err, weather.KindTransport)
}

func TestGoogleGeocodeHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	g := NewGoogleGeocoder("key", 0)
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{Latitude: 1, Longitude: 1}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Geocode(ctx, "Boston")
	assert.Less(t, time.Since(start), time.Second)
	requireServiceError(t, err, weather.KindTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGoogleGeocodeDefaultTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	g := NewGoogleGeocoder("key", 50*time.Millisecond)
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}

	start := time.Now()
	_, err := g.Geocode(context.Background(), "Boston")
	assert.Less(t, time.Since(start), time.Second)
	requireServiceError(t, err, weather.KindTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, `{"current":{"temp":1}}`)
	})

	cfg := testHTTPConfig()
	cfg.Backoff.MaxRetries = 1
	cfg.Backoff.InitialInterval = time.Millisecond
	p := NewOpenWeatherProvider(cfg, "secret")
	p.baseURL = srv.URL

	_, err := p.Current(context.Background(), boston)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	cfg := testHTTPConfig()
	cfg.Backoff.MaxRetries = 3
	cfg.Backoff.InitialInterval = time.Millisecond
	p := NewOpenWeatherProvider(cfg, "secret")
	p.baseURL = srv.URL

	_, err := p.Current(context.Background(), boston)
	requireServiceError(t, err, weather.KindTransport)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSingleAttemptByDefault(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	p := NewOpenWeatherProvider(testHTTPConfig(), "secret")
	p.baseURL = srv.URL

	_, err := p.Current(context.Background(), boston)
	requireServiceError(t, err, weather.KindTransport)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
