package normalize

import (
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
)

const (
	cwaTimeLayout    = "2006-01-02 15:04:05"
	periodTimeLayout = "01/02 15:04"
)

var countyElements = []string{"Wx", "PoP", "MinT", "MaxT", "CI"}

// County builds the 36-hour forecast periods for the first location of a CWA
// response. All five elements must be present and cover every Wx period.
func County(resp *models.CWAResponse) (*models.CountyForecast, bool) {
	if resp == nil || len(resp.Records.Location) == 0 {
		return nil, false
	}
	location := resp.Records.Location[0]

	elements := make(map[string][]models.CWATime, len(location.WeatherElement))
	for _, el := range location.WeatherElement {
		elements[el.ElementName] = el.Time
	}
	for _, name := range countyElements {
		if _, ok := elements[name]; !ok {
			return nil, false
		}
	}

	wx := elements["Wx"]
	if len(wx) == 0 {
		return nil, false
	}
	for _, name := range countyElements[1:] {
		if len(elements[name]) < len(wx) {
			return nil, false
		}
	}

	periods := make([]models.CountyPeriod, 0, len(wx))
	for i, t := range wx {
		periods = append(periods, models.CountyPeriod{
			Start:      periodTime(t.StartTime),
			End:        periodTime(t.EndTime),
			Weather:    t.Parameter.ParameterName,
			RainChance: elements["PoP"][i].Parameter.ParameterName + "%",
			MinTemp:    elements["MinT"][i].Parameter.ParameterName + "°C",
			MaxTemp:    elements["MaxT"][i].Parameter.ParameterName + "°C",
			Comfort:    elements["CI"][i].Parameter.ParameterName,
		})
	}
	return &models.CountyForecast{County: location.LocationName, Periods: periods}, true
}

func periodTime(raw string) string {
	t, err := time.Parse(cwaTimeLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(periodTimeLayout)
}
