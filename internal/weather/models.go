package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Granularity is the time resolution of a weather query.
type Granularity string

const (
	GranularityCurrent Granularity = "current"
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
	GranularityDated   Granularity = "dated"
)

// Coordinates is a geocoded position.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Conditions is a provider's normalized reading of current weather.
type Conditions struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
}

// Summary is the current weather at a named location.
type Summary struct {
	Location    string      `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
	Units       string      `json:"units"`
	Conditions
}

// Period is a single step of a forecast. Hourly periods leave TempMin and
// TempMax equal to Temperature.
type Period struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	TempMin       float64   `json:"temp_min"`
	TempMax       float64   `json:"temp_max"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	PrecipProb    float64   `json:"precipitation_probability"`
	Precipitation float64   `json:"precipitation"`
	Description   string    `json:"description"`
	Condition     Condition `json:"condition"`
}

// Alert is a severe weather warning attached to a daily forecast.
type Alert struct {
	Event       string    `json:"event"`
	Sender      string    `json:"sender,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
}

// Forecast is an hourly or daily forecast. Periods are ordered by Time ascending.
type Forecast struct {
	Location    string      `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
	Granularity Granularity `json:"granularity"`
	Units       string      `json:"units"`
	Periods     []Period    `json:"periods"`
	Alerts      []Alert     `json:"alerts,omitempty"`
}

// DaySummary is the aggregated weather of a single calendar date.
type DaySummary struct {
	Location      string      `json:"location"`
	Coordinates   Coordinates `json:"coordinates"`
	Date          string      `json:"date"` // YYYY-MM-DD
	Units         string      `json:"units"`
	TempMin       float64     `json:"temp_min"`
	TempMax       float64     `json:"temp_max"`
	Humidity      float64     `json:"humidity"`
	Precipitation float64     `json:"precipitation"`
	WindSpeedMax  float64     `json:"wind_speed_max"`
	Condition     Condition   `json:"condition"`
}

// DateLayout is the calendar date format accepted for dated forecasts.
const DateLayout = "2006-01-02"
