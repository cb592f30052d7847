package services

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	resp "tripflow/internal/models/response_models"
)

const (
	placeCandidates = 5
	// model coordinates the geocoder could not confirm are kept only this close to the center
	maxUnverifiedKm = 50.0
)

type FinalizeInput struct {
	Destination string
	Region      string
	Center      resp.Coordinates
	Title       string
	Reasoning   string
	Days        []resp.RichDay
	// Known is the trip's previous route. Places it already located are reused.
	Known []resp.Waypoint
}

type FinalizeOutput struct {
	Title     string           `json:"title"`
	Reasoning string           `json:"reasoning"`
	Days      []resp.StoredDay `json:"days"`
	Waypoints []resp.Waypoint  `json:"waypoints"`
	Center    resp.Coordinates `json:"center"`
	Geocoded  int              `json:"geocoded"`
}

type FinalizerServiceInterface interface {
	Finalize(ctx context.Context, in FinalizeInput) FinalizeOutput
}

type FinalizerService struct {
	geocoder GeocodingServiceInterface
}

func NewFinalizerService(geocoder GeocodingServiceInterface) *FinalizerService {
	return &FinalizerService{geocoder: geocoder}
}

// Finalize locates every named place, derives waypoints and flattens the days to their stored
// shape. Places on the previous route keep their point. Text lines are matched against that
// route by name. A named place the geocoder cannot find keeps model coordinates only when
// they lie near the destination.
func (f *FinalizerService) Finalize(ctx context.Context, in FinalizeInput) FinalizeOutput {
	known := knownPlaces(in.Known, in.Destination)
	memo := make(map[string]*resp.Coordinates)
	days := make([]resp.RichDay, len(in.Days))
	geocoded := 0

	for i, day := range in.Days {
		acts := make([]resp.Activity, len(day.Activities))
		copy(acts, day.Activities)
		for j, a := range acts {
			if a.IsText() {
				if label, coords, ok := known.match(a.Text); ok {
					acts[j].Location = label
					acts[j].Coordinates = &coords
				}
				continue
			}
			place := a.Place()
			if place == "" {
				continue
			}
			if coords, ok := known.lookup(place); ok {
				acts[j].Coordinates = &coords
				continue
			}

			query := place + ", " + in.Destination
			key := strings.ToLower(query)
			coords, seen := memo[key]
			if !seen {
				coords = f.locate(ctx, query, in.Destination, in.Region)
				memo[key] = coords
			}
			switch {
			case coords != nil:
				c := *coords
				acts[j].Coordinates = &c
				geocoded++
			case !a.Coordinates.IsZero() && !nearCenter(*a.Coordinates, in.Center):
				log.Debug().Str("place", place).Msg("dropping unverified coordinates far from destination")
				acts[j].Coordinates = nil
			}
		}
		days[i] = resp.RichDay{Day: day.Day, Title: day.Title, Activities: acts}
	}

	return FinalizeOutput{
		Title:     in.Title,
		Reasoning: in.Reasoning,
		Days:      FlattenDays(days),
		Waypoints: BuildWaypoints(days, in.Destination, in.Center),
		Center:    in.Center,
		Geocoded:  geocoded,
	}
}

func nearCenter(c, center resp.Coordinates) bool {
	if center.IsZero() {
		return true
	}
	return HaversineKm(c.Lat, c.Lng, center.Lat, center.Lng) <= maxUnverifiedKm
}

// placeBook indexes a previous route by lower-cased label.
type placeBook map[string]resp.Waypoint

// knownPlaces skips the destination fallback point and unlocated entries.
func knownPlaces(route []resp.Waypoint, destination string) placeBook {
	book := make(placeBook, len(route))
	dest := strings.ToLower(strings.TrimSpace(destination))
	for _, w := range route {
		label := strings.TrimSpace(w.Label)
		key := strings.ToLower(label)
		if key == "" || key == dest || (w.Lat == 0 && w.Lng == 0) {
			continue
		}
		if _, dup := book[key]; !dup {
			book[key] = resp.Waypoint{Lat: w.Lat, Lng: w.Lng, Label: label}
		}
	}
	return book
}

func (b placeBook) lookup(place string) (resp.Coordinates, bool) {
	w, ok := b[strings.ToLower(strings.TrimSpace(place))]
	return resp.Coordinates{Lat: w.Lat, Lng: w.Lng}, ok
}

// match returns the longest known place named as a whole phrase in line.
func (b placeBook) match(line string) (string, resp.Coordinates, bool) {
	lower := strings.ToLower(line)
	bestKey := ""
	for key := range b {
		if len(key) < len(bestKey) || (len(key) == len(bestKey) && key > bestKey) {
			continue
		}
		if containsPhrase(lower, key) {
			bestKey = key
		}
	}
	if bestKey == "" {
		return "", resp.Coordinates{}, false
	}
	w := b[bestKey]
	return w.Label, resp.Coordinates{Lat: w.Lat, Lng: w.Lng}, true
}

func containsPhrase(text, phrase string) bool {
	for from := 0; from < len(text); {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func (f *FinalizerService) locate(ctx context.Context, query, destination, region string) *resp.Coordinates {
	if ctx.Err() != nil {
		return nil
	}
	results, err := f.geocoder.Search(ctx, query, placeCandidates)
	if err != nil {
		log.Debug().Err(err).Str("query", query).Msg("place geocoding failed")
		return nil
	}
	best, ok := bestCandidate(results, destination, region)
	if !ok {
		return nil
	}
	return &resp.Coordinates{Lat: best.Lat, Lng: best.Lng}
}

// bestCandidate prefers results whose address mentions the destination or its region.
func bestCandidate(results []GeocodeResult, destination, region string) (GeocodeResult, bool) {
	city := strings.ToLower(strings.TrimSpace(strings.Split(destination, ",")[0]))
	region = strings.ToLower(strings.TrimSpace(region))

	var (
		best      GeocodeResult
		bestScore = -1.0
	)
	for _, r := range results {
		if r.Lat == 0 && r.Lng == 0 {
			continue
		}
		addr := strings.ToLower(r.DisplayName + " " + r.City + " " + r.Region)
		score := r.Importance
		if city != "" && strings.Contains(addr, city) {
			score += 1
		}
		if region != "" && strings.Contains(addr, region) {
			score += 0.5
		}
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore >= 0
}

// BuildWaypoints emits one waypoint per located activity in itinerary order, or the
// destination center when nothing was located.
func BuildWaypoints(days []resp.RichDay, destination string, center resp.Coordinates) []resp.Waypoint {
	var waypoints []resp.Waypoint
	for _, day := range days {
		for _, a := range day.Activities {
			if a.Coordinates.IsZero() {
				continue
			}
			waypoints = append(waypoints, resp.Waypoint{
				Lat:   a.Coordinates.Lat,
				Lng:   a.Coordinates.Lng,
				Label: a.Place(),
				Order: len(waypoints) + 1,
			})
		}
	}
	if len(waypoints) == 0 && !center.IsZero() {
		waypoints = append(waypoints, resp.Waypoint{Lat: center.Lat, Lng: center.Lng, Label: destination, Order: 1})
	}
	return waypoints
}

func FlattenDays(days []resp.RichDay) []resp.StoredDay {
	out := make([]resp.StoredDay, 0, len(days))
	for _, d := range days {
		lines := make([]string, 0, len(d.Activities))
		for _, a := range d.Activities {
			if line := strings.TrimSpace(a.Line()); line != "" {
				lines = append(lines, line)
			}
		}
		out = append(out, resp.StoredDay{Day: d.Day, Title: d.Title, Activities: lines})
	}
	return out
}
