package normalize

import (
	"testing"
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
)

func airPayload(aqi *int) *models.AirPollutionPayload {
	item := models.AirPollutionItem{Dt: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC).Unix()}
	item.Main.AQI = aqi
	item.Components.PM25 = 12.34
	item.Components.PM10 = 20.06
	return &models.AirPollutionPayload{List: []models.AirPollutionItem{item}}
}

func TestAirQuality(t *testing.T) {
	got, ok := AirQuality(airPayload(ptr(2)), time.UTC)
	if !ok {
		t.Fatal("AirQuality() ok = false")
	}
	if got.AQI != 2 || got.Label != "普通" || got.Class != "aqi-fair" {
		t.Errorf("AirQuality() = %+v", got)
	}
	if got.PM25 != 12.3 || got.PM10 != 20.1 || got.ObservedAt != "2024-03-05 08:00:00" {
		t.Errorf("components = %+v", got)
	}
}

func TestAirQuality_Absent(t *testing.T) {
	tests := []struct {
		name string
		p    *models.AirPollutionPayload
	}{
		{"nil", nil},
		{"empty list", &models.AirPollutionPayload{}},
		{"missing aqi", airPayload(nil)},
		{"aqi zero", airPayload(ptr(0))},
		{"aqi six", airPayload(ptr(6))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := AirQuality(tt.p, time.UTC); ok || got != nil {
				t.Errorf("AirQuality() = %+v, %v", got, ok)
			}
		})
	}
}
