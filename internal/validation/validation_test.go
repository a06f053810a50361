package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateCity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple", "Taipei", "Taipei", nil},
		{"trimmed", "  New York  ", "New York", nil},
		{"chinese", "臺北市", "臺北市", nil},
		{"two runes", "台北", "台北", nil},
		{"punctuation", "St. John's", "St. John's", nil},
		{"with country", "Paris, FR", "Paris, FR", nil},
		{"accented", "São Paulo", "São Paulo", nil},
		{"empty", "", "", ErrCityEmpty},
		{"whitespace", "  \t ", "", ErrCityEmpty},
		{"too short", "x", "", ErrCityLength},
		{"too long", strings.Repeat("a", 51), "", ErrCityLength},
		{"fifty runes", strings.Repeat("臺", 50), strings.Repeat("臺", 50), nil},
		{"script injection", "<script>", "", ErrCityInvalidChars},
		{"semicolon", "Taipei;drop", "", ErrCityInvalidChars},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCity(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateCity(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCity(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  error
	}{
		{"taipei", 25.03, 121.56, nil},
		{"bounds", -90, 180, nil},
		{"other bounds", 90, -180, nil},
		{"lat 91", 91, 0, ErrLatitudeRange},
		{"lat -91", -91, 0, ErrLatitudeRange},
		{"lon 181", 0, 181, ErrLongitudeRange},
		{"lon -181", 0, -181, ErrLongitudeRange},
		{"both out", 91, 181, ErrLatitudeRange},
		{"NaN lat", math.NaN(), 0, ErrLatitudeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidateCoordinates() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCoordinates() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCoordinates(t *testing.T) {
	lat, lon, err := ParseCoordinates(" 25.033 ", "121.5654")
	if err != nil || lat != 25.033 || lon != 121.5654 {
		t.Errorf("ParseCoordinates() = %v, %v, %v", lat, lon, err)
	}

	tests := []struct {
		name     string
		lat, lon string
		wantErr  error
	}{
		{"missing lat", "", "121", ErrCoordinatesMissing},
		{"missing lon", "25", " ", ErrCoordinatesMissing},
		{"not a number", "abc", "121", ErrCoordinatesFormat},
		{"lon not a number", "25", "east", ErrCoordinatesFormat},
		{"out of range", "91", "0", ErrLatitudeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseCoordinates(tt.lat, tt.lon); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCoordinates() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
