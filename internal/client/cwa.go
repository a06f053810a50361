package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

// NationalGateway is the Central Weather Administration side of the upstream gateway.
type NationalGateway interface {
	CountyForecast(ctx context.Context, code string) (*models.CWAResponse, error)
}

const DefaultCWAURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore/F-C0032-001"

type CWAConfig struct {
	APIKey  string
	URL     string
	Timeout time.Duration
	Traffic *traffic.Tracker
}

type CWAClient struct {
	apiKey string
	url    string
	req    *requester
}

// NewCWAClient never fails: the CWA key is optional and a client without one
// answers every lookup with ErrUnauthorized.
func NewCWAClient(cfg CWAConfig) *CWAClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = DefaultCWAURL
	}
	return &CWAClient{
		apiKey: cfg.APIKey,
		url:    cfg.URL,
		req:    newRequester("cwa", cfg.Timeout, cfg.Traffic),
	}
}

func (c *CWAClient) SetCircuitBreaker(s BreakerSettings) {
	c.req.setBreaker(s)
}

// CountyForecast fetches the 36-hour forecast for one county code.
func (c *CWAClient) CountyForecast(ctx context.Context, code string) (*models.CWAResponse, error) {
	name, ok := CountyName(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCounty, code)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: CWA API key is not configured", ErrUnauthorized)
	}

	params := url.Values{}
	params.Set("Authorization", c.apiKey)
	params.Set("locationName", name)
	params.Set("format", "JSON")
	header := http.Header{}
	header.Set("Authorization", c.apiKey)

	var out models.CWAResponse
	if err := c.req.getJSON(ctx, "county_forecast", c.url, params, header, &out); err != nil {
		return nil, err
	}
	if out.Success == "false" {
		return nil, fmt.Errorf("%w: dataset reported success=false", ErrUpstreamHTTP)
	}
	return &out, nil
}
