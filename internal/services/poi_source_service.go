package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	resp "tripflow/internal/models/response_models"
)

type POISourceInterface interface {
	Attractions(ctx context.Context, lat, lng float64) ([]resp.POI, error)
	Restaurants(ctx context.Context, lat, lng float64) ([]resp.POI, error)
}

// OverpassPOISource pulls named places around a point from the OpenStreetMap Overpass API.
type OverpassPOISource struct {
	rest         restClient
	radiusMeters int
	limit        int
}

func NewOverpassPOISource(baseURL, userAgent string, timeout time.Duration, radiusMeters, limit int) *OverpassPOISource {
	if radiusMeters <= 0 {
		radiusMeters = 8000
	}
	if limit <= 0 {
		limit = 40
	}
	return &OverpassPOISource{
		rest:         newRestClient(baseURL, userAgent, timeout),
		radiusMeters: radiusMeters,
		limit:        limit,
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

func (o *OverpassPOISource) Attractions(ctx context.Context, lat, lng float64) ([]resp.POI, error) {
	around := fmt.Sprintf("(around:%d,%f,%f)", o.radiusMeters, lat, lng)
	query := "[out:json][timeout:25];(" +
		`nwr["tourism"~"attraction|museum|viewpoint|gallery|zoo|theme_park|aquarium"]["name"]` + around + ";" +
		`nwr["historic"~"monument|castle|memorial|ruins|archaeological_site"]["name"]` + around + ";" +
		`nwr["leisure"~"park|garden"]["name"]` + around + ";" +
		");out center tags " + strconv.Itoa(o.limit*2) + ";"
	return o.fetch(ctx, query, resp.POIKindAttraction)
}

func (o *OverpassPOISource) Restaurants(ctx context.Context, lat, lng float64) ([]resp.POI, error) {
	around := fmt.Sprintf("(around:%d,%f,%f)", o.radiusMeters, lat, lng)
	query := "[out:json][timeout:25];(" +
		`nwr["amenity"~"restaurant|cafe|food_court"]["name"]` + around + ";" +
		");out center tags " + strconv.Itoa(o.limit*2) + ";"
	return o.fetch(ctx, query, resp.POIKindRestaurant)
}

func (o *OverpassPOISource) fetch(ctx context.Context, query, kind string) ([]resp.POI, error) {
	var out overpassResponse
	if err := o.rest.postForm(ctx, "", url.Values{"data": []string{query}}, &out); err != nil {
		return nil, fmt.Errorf("overpass %s query: %w", kind, err)
	}

	pois := make([]resp.POI, 0, len(out.Elements))
	for _, el := range out.Elements {
		name := strings.TrimSpace(el.Tags["name:en"])
		if name == "" {
			name = strings.TrimSpace(el.Tags["name"])
		}
		if name == "" {
			continue
		}
		lat, lng := el.Lat, el.Lon
		if el.Center != nil {
			lat, lng = el.Center.Lat, el.Center.Lon
		}
		if lat == 0 && lng == 0 {
			continue
		}
		pois = append(pois, resp.POI{
			ID:           fmt.Sprintf("osm:%s/%d", el.Type, el.ID),
			Name:         name,
			Kind:         kind,
			Latitude:     lat,
			Longitude:    lng,
			Rating:       osmRating(el.Tags),
			VisitMinutes: visitMinutes(kind, el.Tags),
			Tags:         osmTags(el.Tags),
			Description:  firstNonEmpty(el.Tags["description:en"], el.Tags["description"]),
			Address:      osmAddress(el.Tags),
		})
	}

	// more tagged places are usually better documented
	sort.SliceStable(pois, func(i, j int) bool { return len(pois[i].Tags) > len(pois[j].Tags) })
	if len(pois) > o.limit {
		pois = pois[:o.limit]
	}
	return pois, nil
}

func osmTags(tags map[string]string) []string {
	var out []string
	for _, key := range []string{"tourism", "historic", "leisure", "amenity", "cuisine"} {
		if v := tags[key]; v != "" {
			for _, part := range strings.Split(v, ";") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
		}
	}
	if tags["wikipedia"] != "" || tags["wikidata"] != "" {
		out = append(out, "notable")
	}
	return out
}

func osmAddress(tags map[string]string) string {
	street := strings.TrimSpace(strings.Join([]string{tags["addr:housenumber"], tags["addr:street"]}, " "))
	parts := make([]string, 0, 2)
	if street != "" {
		parts = append(parts, street)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

func osmRating(tags map[string]string) float64 {
	if v, err := strconv.ParseFloat(tags["stars"], 64); err == nil {
		return v
	}
	return 0
}

func visitMinutes(kind string, tags map[string]string) int {
	if kind == resp.POIKindRestaurant {
		if tags["amenity"] == "cafe" {
			return 45
		}
		return 75
	}
	switch tags["tourism"] {
	case "museum", "gallery", "zoo", "aquarium":
		return 120
	case "theme_park":
		return 240
	case "viewpoint":
		return 30
	}
	return 60
}
