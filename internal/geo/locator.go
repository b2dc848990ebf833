package geo

import (
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
)

// ErrDisabled is returned when no geocoding API key is configured.
var ErrDisabled = errors.New("geocoding disabled: no API key configured")

// Site is a resolved measurement-site location.
type Site struct {
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locator resolves country names to coordinates for the dashboard's
// location card. Geocoding requires a Google API key.
type Locator struct {
	apiKey string
}

// NewLocator creates a Locator; an empty key disables it.
func NewLocator(apiKey string) *Locator {
	return &Locator{apiKey: apiKey}
}

// Enabled reports whether geocoding is configured.
func (l *Locator) Enabled() bool { return l.apiKey != "" }

// LocateCountry geocodes a country name.
func (l *Locator) LocateCountry(country string) (Site, error) {
	if !l.Enabled() {
		return Site{}, ErrDisabled
	}
	if country == "" {
		return Site{}, errors.New("country must not be empty")
	}

	geocoder.ApiKey = l.apiKey

	location, err := geocoder.Geocoding(geocoder.Address{Country: country})
	if err != nil {
		return Site{}, fmt.Errorf("failed to geocode %q: %w", country, err)
	}

	return Site{
		Country:   country,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}, nil
}
