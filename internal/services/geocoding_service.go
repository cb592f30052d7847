package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type GeocodeResult struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Importance  float64 `json:"importance"`
}

type GeocodingServiceInterface interface {
	Search(ctx context.Context, query string, limit int) ([]GeocodeResult, error)
}

// NominatimGeocoder queries an OpenStreetMap Nominatim instance.
type NominatimGeocoder struct {
	rest restClient
}

func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{rest: newRestClient(baseURL, userAgent, timeout)}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		County  string `json:"county"`
		Country string `json:"country"`
	} `json:"address"`
}

func (g *NominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("geocode query is required")
	}
	if limit <= 0 {
		limit = 1
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(limit))

	var places []nominatimPlace
	if err := g.rest.getJSON(ctx, "/search", q, &places); err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}

	results := make([]GeocodeResult, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		city := firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village)
		results = append(results, GeocodeResult{
			Name:        firstNonEmpty(p.Name, city),
			DisplayName: p.DisplayName,
			City:        city,
			Region:      firstNonEmpty(p.Address.State, p.Address.County),
			Country:     p.Address.Country,
			Lat:         lat,
			Lng:         lng,
			Importance:  p.Importance,
		})
	}
	return results, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
