package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/manga-store/manga-store-api/config"
)

// GeocodeResult is a resolved shipping address
type GeocodeResult struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// Geocoder resolves a free-form address to coordinates. Lookups are
// best-effort: callers tolerate failure and leave coordinates unset.
type Geocoder interface {
	Geocode(address string) (*GeocodeResult, error)
}

// NominatimGeocoder queries the Nominatim search API
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

var geocoderInstance Geocoder

// InitGeocoder initializes the Nominatim geocoder from configuration
func InitGeocoder(cfg *config.Config) Geocoder {
	geocoderInstance = &NominatimGeocoder{
		baseURL: cfg.GeocoderURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	return geocoderInstance
}

// GetGeocoder returns the initialized geocoder
func GetGeocoder() Geocoder {
	return geocoderInstance
}

// SetGeocoder sets the geocoder instance (primarily for testing)
func SetGeocoder(g Geocoder) {
	geocoderInstance = g
}

// nominatimPlace mirrors the fields we use from a Nominatim search result
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address through Nominatim, returning the best match
func (g *NominatimGeocoder) Geocode(address string) (*GeocodeResult, error) {
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}

	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequest(http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", "MangaStore/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("no geocoding match for address")
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocoder response: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocoder response: %w", err)
	}

	return &GeocodeResult{Latitude: lat, Longitude: lon, DisplayName: places[0].DisplayName}, nil
}
