package models

// CWAResponse is the F-C0032-001 (36-hour county forecast) dataset returned by
// the Central Weather Administration open data API.
type CWAResponse struct {
	Success string `json:"success"`
	Records struct {
		DatasetDescription string        `json:"datasetDescription"`
		Location           []CWALocation `json:"location"`
	} `json:"records"`
}

type CWALocation struct {
	LocationName   string       `json:"locationName"`
	WeatherElement []CWAElement `json:"weatherElement"`
}

// CWAElement is one named time series: Wx, PoP, MinT, MaxT or CI.
type CWAElement struct {
	ElementName string    `json:"elementName"`
	Time        []CWATime `json:"time"`
}

type CWATime struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Parameter struct {
		ParameterName  string `json:"parameterName"`
		ParameterValue string `json:"parameterValue"`
		ParameterUnit  string `json:"parameterUnit"`
	} `json:"parameter"`
}

// County is one of the supported national-agency regions.
type County struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
