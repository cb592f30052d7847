package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	dbm "tripflow/internal/models/db_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

// scriptedLLM answers by the first rule whose marker appears in the prompt.
type scriptedLLM struct {
	mu    sync.Mutex
	rules []llmRule
	calls []string
}

type llmRule struct {
	marker string
	reply  string
	err    error
}

func (l *scriptedLLM) on(marker, reply string) *scriptedLLM {
	l.rules = append(l.rules, llmRule{marker: marker, reply: reply})
	return l
}

func (l *scriptedLLM) fail(marker string, err error) *scriptedLLM {
	l.rules = append(l.rules, llmRule{marker: marker, err: err})
	return l
}

func (l *scriptedLLM) GenerateText(_ context.Context, prompt string, _ utils.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, prompt)
	for _, r := range l.rules {
		if strings.Contains(prompt, r.marker) {
			return r.reply, r.err
		}
	}
	return "", errors.New("no scripted reply")
}

func (l *scriptedLLM) callCount(marker string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if strings.Contains(c, marker) {
			n++
		}
	}
	return n
}

const (
	factsMarker     = "Provide structured facts"
	generateMarker  = "Create a detailed"
	updateMarker    = "editing an existing travel itinerary"
	translateMarker = "Translate every human-readable"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodeResult, error) {
	args := m.Called(ctx, query, limit)
	results, _ := args.Get(0).([]GeocodeResult)
	return results, args.Error(1)
}

// stubGeocoder resolves any query to a point near the city center, and the city itself to it.
type stubGeocoder struct {
	mu    sync.Mutex
	city  GeocodeResult
	calls int
	err   error
}

func (g *stubGeocoder) Search(_ context.Context, query string, _ int) ([]GeocodeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if !strings.Contains(query, ",") {
		return []GeocodeResult{g.city}, nil
	}
	offset := float64(len(query)%7) * 0.001
	return []GeocodeResult{{
		Name:        strings.Split(query, ",")[0],
		DisplayName: query + ", " + g.city.Country,
		City:        g.city.City,
		Country:     g.city.Country,
		Lat:         g.city.Lat + offset,
		Lng:         g.city.Lng + offset,
		Importance:  0.5,
	}}, nil
}

type stubPOIs struct {
	attractions []resp.POI
	restaurants []resp.POI
	err         error
}

func (s *stubPOIs) Attractions(context.Context, float64, float64) ([]resp.POI, error) {
	return s.attractions, s.err
}

func (s *stubPOIs) Restaurants(context.Context, float64, float64) ([]resp.POI, error) {
	return s.restaurants, s.err
}

type stubEncyclopedia struct {
	summary *EncyclopediaSummary
	err     error
}

func (s *stubEncyclopedia) Summary(context.Context, string) (*EncyclopediaSummary, error) {
	return s.summary, s.err
}

// keywordEmbedder maps text onto one axis per keyword it contains.
type keywordEmbedder struct {
	keywords []string
}

func (k keywordEmbedder) GetEmbedding(_ context.Context, text string) (pgvector.Vector, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(k.keywords)+1)
	vec[len(k.keywords)] = 0.01
	for i, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	return pgvector.NewVector(vec), nil
}

type memTripRepo struct {
	mu    sync.Mutex
	trips map[uuid.UUID]dbm.Trip
}

func newMemTripRepo() *memTripRepo {
	return &memTripRepo{trips: make(map[uuid.UUID]dbm.Trip)}
}

func (r *memTripRepo) Create(_ context.Context, trip *dbm.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	r.trips[trip.ID] = *trip
	return nil
}

func (r *memTripRepo) GetByID(_ context.Context, id uuid.UUID) (*dbm.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, utils.ErrTripNotFound
	}
	return &t, nil
}

func (r *memTripRepo) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return utils.ErrTripNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			t.Status = dbm.TripStatus(v.(string))
		case "title":
			t.Title = v.(string)
		case "destination":
			t.Destination = v.(string)
		case "latitude":
			t.Latitude = v.(float64)
		case "longitude":
			t.Longitude = v.(float64)
		case "budget":
			b := v.(float64)
			t.Budget = &b
		case "travelers":
			t.Travelers = v.(int)
		case "end_date":
			t.EndDate = v.(string)
		case "itinerary":
			t.Itinerary = v.(datatypes.JSON)
		case "waypoints":
			t.Waypoints = v.(datatypes.JSON)
		case "metadata":
			t.Metadata = v.(datatypes.JSON)
		default:
			return errors.New("unexpected column " + k)
		}
	}
	r.trips[id] = t
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []resp.ProgressEvent
}

func (n *recordingNotifier) Publish(_ context.Context, e resp.ProgressEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) forInstance(id string) []resp.ProgressEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []resp.ProgressEvent
	for _, e := range n.events {
		if e.InstanceID == id {
			out = append(out, e)
		}
	}
	return out
}
