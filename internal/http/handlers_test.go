package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/service"
	"github.com/kjstillabower/cityweather/internal/store"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

type mockWeatherService struct {
	mu          sync.Mutex
	result      *models.SearchResult
	err         error
	air         *models.AirQuality
	county      *models.CountyForecast
	reports     []models.WeatherSnapshot
	validateErr error
	pingErr     error

	searchCities   []string
	searchUnits    []models.Units
	coordCalls     int
	invalidations  int
	dashboardInput []string
}

func (m *mockWeatherService) Search(ctx context.Context, city string) (*models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCities = append(m.searchCities, city)
	m.searchUnits = append(m.searchUnits, models.UnitsFromContext(ctx))
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	return &r, nil
}

func (m *mockWeatherService) SearchByCoords(ctx context.Context, lat, lon float64) (*models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coordCalls++
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	return &r, nil
}

func (m *mockWeatherService) AirQuality(ctx context.Context, lat, lon float64) (*models.AirQuality, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.air, nil
}

func (m *mockWeatherService) Counties() []models.County {
	return []models.County{{Code: "TPE", Name: "臺北市"}, {Code: "KHH", Name: "高雄市"}}
}

func (m *mockWeatherService) CountyForecast(ctx context.Context, code string) (*models.CountyForecast, error) {
	if m.county == nil {
		return nil, fmt.Errorf("cwa_weather: %w", service.ErrNoData)
	}
	return m.county, nil
}

func (m *mockWeatherService) Dashboard(ctx context.Context, cities []string) []models.WeatherSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboardInput = append([]string(nil), cities...)
	return m.reports
}

func (m *mockWeatherService) InvalidateUnits(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
}

func (m *mockWeatherService) ValidateAPIKey(ctx context.Context) error { return m.validateErr }

func (m *mockWeatherService) Ping(ctx context.Context) error { return m.pingErr }

type mockFavorites struct {
	mu      sync.Mutex
	saved   map[uint]map[string]bool
	order   map[uint][]string
	err     error
	isCalls int
}

func newMockFavorites() *mockFavorites {
	return &mockFavorites{saved: map[uint]map[string]bool{}, order: map[uint][]string{}}
}

func (m *mockFavorites) Save(ctx context.Context, userID uint, city string) (store.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.saved[userID] == nil {
		m.saved[userID] = map[string]bool{}
	}
	if m.saved[userID][city] {
		return store.OutcomeAlreadySaved, nil
	}
	m.saved[userID][city] = true
	m.order[userID] = append([]string{city}, m.order[userID]...)
	return store.OutcomeSaved, nil
}

func (m *mockFavorites) Remove(ctx context.Context, userID uint, city string) (store.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if !m.saved[userID][city] {
		return store.OutcomeNotFound, nil
	}
	delete(m.saved[userID], city)
	return store.OutcomeRemoved, nil
}

func (m *mockFavorites) IsSaved(ctx context.Context, userID uint, city string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isCalls++
	return m.saved[userID][city], m.err
}

func (m *mockFavorites) List(ctx context.Context, userID uint, page, perPage int) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.Page{}, m.err
	}
	var items []store.SavedCity
	for _, c := range m.order[userID] {
		if m.saved[userID][c] {
			items = append(items, store.SavedCity{CityName: c})
		}
	}
	total := int64(len(items))
	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return store.Page{Items: items[start:end], Page: page, PerPage: perPage, Total: total}, nil
}

type mockHistory struct {
	mu      sync.Mutex
	records []string
	err     error
}

func (m *mockHistory) Record(ctx context.Context, userID uint, city string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, city)
	return nil
}

func (m *mockHistory) Recent(ctx context.Context, userID uint, limit int) ([]store.SearchHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.SearchHistory
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, store.SearchHistory{CityName: m.records[i]})
	}
	return out, m.err
}

type mockAuth struct {
	users map[string]string
	err   error
}

func (m *mockAuth) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if pw, ok := m.users[username]; ok && pw == password {
		return &store.User{ID: 7, Username: username}, nil
	}
	return nil, store.ErrInvalidCredentials
}

type testDeps struct {
	weather   *mockWeatherService
	favorites *mockFavorites
	history   *mockHistory
	auth      *mockAuth
	traffic   *traffic.Tracker
	inFlight  *InFlightTracker
}

func sampleResult() *models.SearchResult {
	return &models.SearchResult{
		Current: &models.WeatherSnapshot{
			City:            "Taipei",
			Country:         "TW",
			Temperature:     22.8,
			TemperatureUnit: "°C",
		},
		Forecast: []models.ForecastBucket{},
		Units:    models.UnitsMetric,
	}
}

func newTestDeps() *testDeps {
	return &testDeps{
		weather:   &mockWeatherService{result: sampleResult()},
		favorites: newMockFavorites(),
		history:   &mockHistory{},
		auth:      &mockAuth{users: map[string]string{"alice": "secret1"}},
		traffic:   traffic.NewTracker(nil),
		inFlight:  &InFlightTracker{},
	}
}

func (d *testDeps) router(opts Options) *mux.Router {
	h := NewHandler(d.weather, d.favorites, d.history, zap.NewNop(), opts)
	return NewRouter(h, RouterConfig{
		Logger:       zap.NewNop(),
		DefaultUnits: models.UnitsMetric,
		Auth:         d.auth,
		Traffic:      d.traffic,
		InFlight:     d.inFlight,
	})
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

// TestHandler_SearchWeather_Success verifies the search response carries the
// normalized result for an anonymous caller without touching the favorites store.
func TestHandler_SearchWeather_Success(t *testing.T) {
	d := newTestDeps()
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/weather/search?city=Taipei", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got models.SearchResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Current == nil || got.Current.City != "Taipei" || got.Current.Temperature != 22.8 {
		t.Errorf("Current = %+v, want Taipei 22.8", got.Current)
	}
	if got.Saved {
		t.Error("Saved = true for anonymous caller")
	}
	if d.favorites.isCalls != 0 {
		t.Errorf("IsSaved called %d times for anonymous caller, want 0", d.favorites.isCalls)
	}
	if len(d.history.records) != 0 {
		t.Errorf("history recorded %v for anonymous caller", d.history.records)
	}
}

// TestHandler_SearchWeather_AuthenticatedMarksSaved verifies that an
// authenticated search is annotated with the saved flag and logged to history.
func TestHandler_SearchWeather_AuthenticatedMarksSaved(t *testing.T) {
	d := newTestDeps()
	_, _ = d.favorites.Save(context.Background(), 7, "Taipei")

	req := httptest.NewRequest(http.MethodGet, "/weather/search?city=Taipei", nil)
	req.SetBasicAuth("alice", "secret1")
	w := serve(d.router(Options{}), req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got models.SearchResult
	_ = json.NewDecoder(w.Body).Decode(&got)
	if !got.Saved {
		t.Error("Saved = false, want true")
	}
	if len(d.history.records) != 1 || d.history.records[0] != "Taipei" {
		t.Errorf("history = %v, want [Taipei]", d.history.records)
	}
}

// TestHandler_SearchWeather_HistoryFailureStillAnswers verifies that a
// history write error does not fail the search.
func TestHandler_SearchWeather_HistoryFailureStillAnswers(t *testing.T) {
	d := newTestDeps()
	d.history.err = errors.New("disk full")

	req := httptest.NewRequest(http.MethodGet, "/weather/search?city=Taipei", nil)
	req.SetBasicAuth("alice", "secret1")
	w := serve(d.router(Options{}), req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestHandler_SearchWeather_InvalidCity verifies input validation happens
// before the service is called.
func TestHandler_SearchWeather_InvalidCity(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing", "/weather/search"},
		{"blank", "/weather/search?city=%20%20"},
		{"too short", "/weather/search?city=A"},
		{"bad chars", "/weather/search?city=Tai%3Cpei%3E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, tt.query, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if code := decodeError(t, w)["code"]; code != "INVALID_CITY" {
				t.Errorf("code = %q, want INVALID_CITY", code)
			}
			if len(d.weather.searchCities) != 0 {
				t.Errorf("Search called with %v", d.weather.searchCities)
			}
		})
	}
}

// TestHandler_SearchWeather_NoData verifies that every upstream failure is
// reported as the same NO_DATA response.
func TestHandler_SearchWeather_NoData(t *testing.T) {
	d := newTestDeps()
	d.weather.err = fmt.Errorf("current_weather: %w", service.ErrNoData)

	req := httptest.NewRequest(http.MethodGet, "/weather/search?city=Atlantis", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	w := serve(d.router(Options{}), req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	body := decodeError(t, w)
	if body["code"] != "NO_DATA" {
		t.Errorf("code = %q, want NO_DATA", body["code"])
	}
	if body["requestId"] != "corr-123" {
		t.Errorf("requestId = %q, want corr-123", body["requestId"])
	}
}

// TestHandler_SearchWeather_UsesUnitsCookie verifies the units cookie reaches the service.
func TestHandler_SearchWeather_UsesUnitsCookie(t *testing.T) {
	d := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/weather/search?city=Taipei", nil)
	req.AddCookie(&http.Cookie{Name: unitsCookie, Value: "imperial"})
	serve(d.router(Options{}), req)

	if len(d.weather.searchUnits) != 1 || d.weather.searchUnits[0] != models.UnitsImperial {
		t.Errorf("units = %v, want [imperial]", d.weather.searchUnits)
	}
}

// TestHandler_SearchByCoords_RejectsBeforeUpstream verifies out-of-range
// coordinates never reach the service.
func TestHandler_SearchByCoords_RejectsBeforeUpstream(t *testing.T) {
	tests := []string{
		"/weather/coords?lat=91&lon=0",
		"/weather/coords?lat=0&lon=181",
		"/weather/coords?lat=abc&lon=0",
		"/weather/coords?lat=25",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			d := newTestDeps()
			w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if d.weather.coordCalls != 0 {
				t.Errorf("SearchByCoords called %d times, want 0", d.weather.coordCalls)
			}
		})
	}
}

func TestHandler_SearchByCoords_Success(t *testing.T) {
	d := newTestDeps()
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/weather/coords?lat=25.03&lon=121.56", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if d.weather.coordCalls != 1 {
		t.Errorf("SearchByCoords called %d times, want 1", d.weather.coordCalls)
	}
}

// TestHandler_SearchByCoords_ServiceRejects verifies ErrInvalidCoordinates maps to 400.
func TestHandler_SearchByCoords_ServiceRejects(t *testing.T) {
	d := newTestDeps()
	d.weather.err = fmt.Errorf("%w: latitude out of range", service.ErrInvalidCoordinates)
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/weather/coords?lat=25&lon=121", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandler_GetAirQuality(t *testing.T) {
	d := newTestDeps()
	d.weather.air = &models.AirQuality{AQI: 2, Label: "普通"}
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/weather/air?lat=25.03&lon=121.56", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got models.AirQuality
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.AQI != 2 {
		t.Errorf("AQI = %d, want 2", got.AQI)
	}
}

// TestHandler_SetUnits verifies the cookie is set and the cache is invalidated.
func TestHandler_SetUnits(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			d := newTestDeps()
			w := serve(d.router(Options{}), httptest.NewRequest(method, "/set_units/imperial", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if d.weather.invalidations != 1 {
				t.Errorf("InvalidateUnits called %d times, want 1", d.weather.invalidations)
			}
			var found bool
			for _, c := range w.Result().Cookies() {
				if c.Name == unitsCookie && c.Value == "imperial" {
					found = true
				}
			}
			if !found {
				t.Error("units cookie not set to imperial")
			}
		})
	}
}

func TestHandler_SetUnits_Invalid(t *testing.T) {
	d := newTestDeps()
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/set_units/kelvin", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if d.weather.invalidations != 0 {
		t.Errorf("InvalidateUnits called %d times for invalid unit", d.weather.invalidations)
	}
}

func TestHandler_ListCounties(t *testing.T) {
	d := newTestDeps()
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/taiwan/cities", nil))
	var body struct {
		Success bool            `json:"success"`
		Data    []models.County `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != 2 {
		t.Errorf("body = %+v, want success with 2 counties", body)
	}
}

func TestHandler_GetCountyWeather(t *testing.T) {
	d := newTestDeps()
	d.weather.county = &models.CountyForecast{County: "臺北市", Periods: []models.CountyPeriod{{Weather: "晴"}}}
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/taiwan/weather/TPE", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Success bool                  `json:"success"`
		Data    models.CountyForecast `json:"data"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if !body.Success || body.Data.County != "臺北市" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_GetCountyWeather_NoData(t *testing.T) {
	d := newTestDeps()
	w := serve(d.router(Options{}), httptest.NewRequest(http.MethodGet, "/taiwan/weather/XXX", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var body map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}
