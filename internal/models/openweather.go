package models

// Payload records decoded from the OpenWeather API. Fields the normalizer
// requires are pointers (or slices) so that an absent field can be told apart
// from a zero value.

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type MainReadings struct {
	Temp      *float64 `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	Pressure  int      `json:"pressure"`
	Humidity  int      `json:"humidity"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}

type CurrentPayload struct {
	Coord   *Coord        `json:"coord"`
	Weather []Condition   `json:"weather"`
	Main    *MainReadings `json:"main"`
	Wind    Wind          `json:"wind"`
	Sys     struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Dt       int64  `json:"dt"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type ForecastItem struct {
	Dt      int64         `json:"dt"`
	Main    *MainReadings `json:"main"`
	Weather []Condition   `json:"weather"`
	Wind    Wind          `json:"wind"`
	Pop     float64       `json:"pop"`
	DtTxt   string        `json:"dt_txt"`
}

type ForecastPayload struct {
	List []ForecastItem `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

type AirPollutionItem struct {
	Main struct {
		AQI *int `json:"aqi"`
	} `json:"main"`
	Components struct {
		PM25 float64 `json:"pm2_5"`
		PM10 float64 `json:"pm10"`
		NO2  float64 `json:"no2"`
		O3   float64 `json:"o3"`
	} `json:"components"`
	Dt int64 `json:"dt"`
}

type AirPollutionPayload struct {
	Coord *Coord             `json:"coord"`
	List  []AirPollutionItem `json:"list"`
}
