package normalize

import (
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
)

var aqiLevels = [...]struct{ label, class string }{
	{"良好", "aqi-good"},
	{"普通", "aqi-fair"},
	{"中等", "aqi-moderate"},
	{"不良", "aqi-poor"},
	{"非常不良", "aqi-very-poor"},
}

// AirQuality reads the first entry of an air pollution payload. The index
// must be within 1..5.
func AirQuality(p *models.AirPollutionPayload, loc *time.Location) (*models.AirQuality, bool) {
	if p == nil || len(p.List) == 0 || p.List[0].Main.AQI == nil {
		return nil, false
	}
	item := p.List[0]
	aqi := *item.Main.AQI
	if aqi < 1 || aqi > len(aqiLevels) {
		return nil, false
	}
	if loc == nil {
		loc = time.Local
	}
	level := aqiLevels[aqi-1]
	return &models.AirQuality{
		AQI:        aqi,
		Label:      level.label,
		Class:      level.class,
		PM25:       Round1(item.Components.PM25),
		PM10:       Round1(item.Components.PM10),
		NO2:        Round1(item.Components.NO2),
		O3:         Round1(item.Components.O3),
		ObservedAt: formatEpoch(item.Dt, observedLayout, loc),
	}, true
}
