package models

// WeatherSnapshot is the display form of current conditions for one place.
type WeatherSnapshot struct {
	City            string  `json:"city"`
	Country         string  `json:"country"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Temperature     float64 `json:"temperature"`
	FeelsLike       float64 `json:"feelsLike"`
	Humidity        int     `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
	Pressure        int     `json:"pressure"`
	Description     string  `json:"description"`
	Icon            string  `json:"icon"`
	Category        string  `json:"category"`
	IconClass       string  `json:"iconClass"`
	ConditionLabel  string  `json:"conditionLabel"`
	TemperatureUnit string  `json:"temperatureUnit"`
	WindSpeedUnit   string  `json:"windSpeedUnit"`
	ObservedAt      string  `json:"observedAt"`
	Sunrise         string  `json:"sunrise"`
	Sunset          string  `json:"sunset"`
}

type ForecastEntry struct {
	Time                string  `json:"time"`
	Temperature         float64 `json:"temperature"`
	Description         string  `json:"description"`
	Icon                string  `json:"icon"`
	IconClass           string  `json:"iconClass"`
	PrecipitationChance int     `json:"precipitationChance"`
	Weekday             string  `json:"weekday"`
}

// ForecastBucket holds the forecast entries of one calendar date, in provider order.
type ForecastBucket struct {
	Date    string          `json:"date"`
	Weekday string          `json:"weekday"`
	Entries []ForecastEntry `json:"entries"`
}

// ChartSeries holds parallel sequences ready for a line/bar chart.
type ChartSeries struct {
	Labels        []string  `json:"labels"`
	Temperatures  []float64 `json:"temperatures"`
	Precipitation []int     `json:"precipitation"`
}

type AirQuality struct {
	AQI        int     `json:"aqi"`
	Label      string  `json:"label"`
	Class      string  `json:"class"`
	PM25       float64 `json:"pm25"`
	PM10       float64 `json:"pm10"`
	NO2        float64 `json:"no2"`
	O3         float64 `json:"o3"`
	ObservedAt string  `json:"observedAt"`
}

// IconStyle is the visual class and localized label for a provider icon code.
type IconStyle struct {
	Class string `json:"class"`
	Label string `json:"label"`
}

type CountyPeriod struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Weather    string `json:"weather"`
	RainChance string `json:"rainChance"`
	MinTemp    string `json:"minTemp"`
	MaxTemp    string `json:"maxTemp"`
	Comfort    string `json:"comfort"`
}

type CountyForecast struct {
	County  string         `json:"county"`
	Periods []CountyPeriod `json:"periods"`
}

// SearchResult is everything a search page shows for one place.
type SearchResult struct {
	Current  *WeatherSnapshot `json:"current"`
	Forecast []ForecastBucket `json:"forecast"`
	Chart    ChartSeries      `json:"chart"`
	Units    Units            `json:"units"`
	Saved    bool             `json:"saved"`
}
