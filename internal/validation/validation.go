package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	ErrCityEmpty          = errors.New("city is required")
	ErrCityLength         = errors.New("city must be between 2 and 50 characters")
	ErrCityInvalidChars   = errors.New("city contains invalid characters")
	ErrCoordinatesMissing = errors.New("lat and lon are required")
	ErrCoordinatesFormat  = errors.New("lat and lon must be numbers")
	ErrLatitudeRange      = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange     = errors.New("longitude must be between -180 and 180")
)

// CityQuery is a free-text city search. Length bounds count runes.
type CityQuery struct {
	City string `validate:"required,min=2,max=50,cityname"`
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cityname", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !isAllowedCityRune(r) {
				return false
			}
		}
		return true
	})
	return v
}

// isAllowedCityRune returns true for letters (Unicode), digits, space, comma,
// hyphen, period and apostrophe.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ValidateCity trims the input and checks it against CityQuery's rules.
// Returns the trimmed city, forwarded verbatim to the provider.
func ValidateCity(input string) (string, error) {
	q := CityQuery{City: strings.TrimSpace(input)}
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Tag() {
			case "required":
				return "", ErrCityEmpty
			case "min", "max":
				return "", ErrCityLength
			case "cityname":
				return "", ErrCityInvalidChars
			}
		}
		return "", err
	}
	return q.City, nil
}

// ParseCoordinates parses and range-checks a lat/lon query pair.
func ParseCoordinates(latStr, lonStr string) (float64, float64, error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordinatesMissing
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesFormat
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesFormat
	}
	if err := ValidateCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and longitudes
// outside [-180, 180]. NaN fails both bounds.
func ValidateCoordinates(lat, lon float64) error {
	if err := validate.Struct(Coordinates{Lat: lat, Lon: lon}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Lon" {
			return ErrLongitudeRange
		}
		return ErrLatitudeRange
	}
	return nil
}
