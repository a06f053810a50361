package client

import "github.com/kjstillabower/cityweather/internal/models"

// counties lists the regions served by the CWA 36-hour forecast, keyed by
// ISO 3166-2:TW subdivision code.
var counties = []models.County{
	{Code: "TPE", Name: "臺北市"},
	{Code: "NWT", Name: "新北市"},
	{Code: "TAO", Name: "桃園市"},
	{Code: "TXG", Name: "臺中市"},
	{Code: "TNN", Name: "臺南市"},
	{Code: "KHH", Name: "高雄市"},
	{Code: "KEE", Name: "基隆市"},
	{Code: "HSQ", Name: "新竹縣"},
	{Code: "HSZ", Name: "新竹市"},
	{Code: "MIA", Name: "苗栗縣"},
	{Code: "CHA", Name: "彰化縣"},
	{Code: "NAN", Name: "南投縣"},
	{Code: "YUN", Name: "雲林縣"},
	{Code: "CYQ", Name: "嘉義縣"},
	{Code: "CYI", Name: "嘉義市"},
	{Code: "PIF", Name: "屏東縣"},
	{Code: "ILA", Name: "宜蘭縣"},
	{Code: "HUA", Name: "花蓮縣"},
	{Code: "TTT", Name: "臺東縣"},
	{Code: "PEN", Name: "澎湖縣"},
	{Code: "KIN", Name: "金門縣"},
	{Code: "LIE", Name: "連江縣"},
}

var countyByCode = func() map[string]string {
	m := make(map[string]string, len(counties))
	for _, c := range counties {
		m[c.Code] = c.Name
	}
	return m
}()

// Counties returns the supported regions in display order.
func Counties() []models.County {
	out := make([]models.County, len(counties))
	copy(out, counties)
	return out
}

// CountyName returns the CWA location name for code.
func CountyName(code string) (string, bool) {
	name, ok := countyByCode[code]
	return name, ok
}
