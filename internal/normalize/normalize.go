// Package normalize turns decoded provider payloads into display structures.
// Every function is pure and fails closed: a payload missing a required field
// yields ok == false and never a partially filled result.
package normalize

import (
	"math"
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
)

const (
	observedLayout = "2006-01-02 15:04:05"
	clockLayout    = "15:04"
	dateLayout     = "2006-01-02"

	// ChartPoints caps the chart series length across all dates.
	ChartPoints = 12
)

var weekdayLabels = [7]string{"週日", "週一", "週二", "週三", "週四", "週五", "週六"}

// Round1 rounds v to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// WeekdayLabel returns the localized label for d.
func WeekdayLabel(d time.Weekday) string {
	return weekdayLabels[d]
}

// Current builds a WeatherSnapshot from a current-conditions payload.
// It requires name, main.temp and at least one weather condition.
func Current(p *models.CurrentPayload, units models.Units, loc *time.Location) (*models.WeatherSnapshot, bool) {
	if p == nil || p.Name == "" || p.Main == nil || p.Main.Temp == nil || len(p.Weather) == 0 {
		return nil, false
	}
	if loc == nil {
		loc = time.Local
	}
	if units == "" {
		units = models.UnitsMetric
	}

	cond := p.Weather[0]
	style := IconStyle(cond.Icon)
	snap := &models.WeatherSnapshot{
		City:            p.Name,
		Country:         p.Sys.Country,
		Temperature:     Round1(*p.Main.Temp),
		FeelsLike:       Round1(p.Main.FeelsLike),
		Humidity:        p.Main.Humidity,
		WindSpeed:       Round1(p.Wind.Speed),
		Pressure:        p.Main.Pressure,
		Description:     cond.Description,
		Icon:            cond.Icon,
		Category:        cond.Main,
		IconClass:       style.Class,
		ConditionLabel:  style.Label,
		TemperatureUnit: units.TemperatureSymbol(),
		WindSpeedUnit:   units.WindSpeedUnit(),
		ObservedAt:      formatEpoch(p.Dt, observedLayout, loc),
		Sunrise:         formatEpoch(p.Sys.Sunrise, clockLayout, loc),
		Sunset:          formatEpoch(p.Sys.Sunset, clockLayout, loc),
	}
	if p.Coord != nil {
		snap.Lat = p.Coord.Lat
		snap.Lon = p.Coord.Lon
	}
	return snap, true
}

// Forecast groups the provider's 3-hour entries by local calendar date.
// Buckets keep first-appearance order and entries keep provider order.
func Forecast(p *models.ForecastPayload, loc *time.Location) ([]models.ForecastBucket, bool) {
	if p == nil || len(p.List) == 0 {
		return nil, false
	}
	if loc == nil {
		loc = time.Local
	}

	var buckets []models.ForecastBucket
	index := make(map[string]int)
	for _, item := range p.List {
		if item.Main == nil || item.Main.Temp == nil || len(item.Weather) == 0 {
			return nil, false
		}
		ts := time.Unix(item.Dt, 0).In(loc)
		date := ts.Format(dateLayout)
		weekday := WeekdayLabel(ts.Weekday())

		cond := item.Weather[0]
		entry := models.ForecastEntry{
			Time:                ts.Format(clockLayout),
			Temperature:         Round1(*item.Main.Temp),
			Description:         cond.Description,
			Icon:                cond.Icon,
			IconClass:           IconStyle(cond.Icon).Class,
			PrecipitationChance: int(math.Round(item.Pop * 100)),
			Weekday:             weekday,
		}

		i, ok := index[date]
		if !ok {
			i = len(buckets)
			index[date] = i
			buckets = append(buckets, models.ForecastBucket{Date: date, Weekday: weekday})
		}
		buckets[i].Entries = append(buckets[i].Entries, entry)
	}
	return buckets, true
}

// Chart flattens buckets in order and keeps the first ChartPoints entries.
func Chart(buckets []models.ForecastBucket) models.ChartSeries {
	series := models.ChartSeries{
		Labels:        []string{},
		Temperatures:  []float64{},
		Precipitation: []int{},
	}
	for _, b := range buckets {
		for _, e := range b.Entries {
			if len(series.Labels) == ChartPoints {
				return series
			}
			series.Labels = append(series.Labels, chartLabel(b.Date, e.Time))
			series.Temperatures = append(series.Temperatures, e.Temperature)
			series.Precipitation = append(series.Precipitation, e.PrecipitationChance)
		}
	}
	return series
}

func chartLabel(date, clock string) string {
	if len(date) == len(dateLayout) {
		date = date[5:]
	}
	return date + " " + clock
}

func formatEpoch(sec int64, layout string, loc *time.Location) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).In(loc).Format(layout)
}
