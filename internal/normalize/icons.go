package normalize

import "github.com/kjstillabower/cityweather/internal/models"

var fallbackIcon = models.IconStyle{Class: "wi-na", Label: "未知"}

var iconStyles = map[string]models.IconStyle{
	"01d": {Class: "wi-day-sunny", Label: "晴天"},
	"01n": {Class: "wi-night-clear", Label: "晴朗"},
	"02d": {Class: "wi-day-cloudy", Label: "多雲"},
	"02n": {Class: "wi-night-alt-cloudy", Label: "多雲"},
	"03d": {Class: "wi-cloud", Label: "陰天"},
	"03n": {Class: "wi-cloud", Label: "陰天"},
	"04d": {Class: "wi-cloudy", Label: "陰天"},
	"04n": {Class: "wi-cloudy", Label: "陰天"},
	"09d": {Class: "wi-day-showers", Label: "小雨"},
	"09n": {Class: "wi-night-alt-showers", Label: "小雨"},
	"10d": {Class: "wi-day-rain", Label: "下雨"},
	"10n": {Class: "wi-night-alt-rain", Label: "下雨"},
	"11d": {Class: "wi-day-thunderstorm", Label: "雷雨"},
	"11n": {Class: "wi-night-alt-thunderstorm", Label: "雷雨"},
	"13d": {Class: "wi-day-snow", Label: "下雪"},
	"13n": {Class: "wi-night-alt-snow", Label: "下雪"},
	"50d": {Class: "wi-day-fog", Label: "有霧"},
	"50n": {Class: "wi-night-fog", Label: "有霧"},
}

// IconStyle maps a provider icon code to its display class and label.
// Unknown codes get the wi-na fallback.
func IconStyle(code string) models.IconStyle {
	if s, ok := iconStyles[code]; ok {
		return s
	}
	return fallbackIcon
}
