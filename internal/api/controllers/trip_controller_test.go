package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	dbm "tripflow/internal/models/db_models"
	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/middleware"
	"tripflow/pkg/utils"
)

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) CreateTrip(ctx context.Context, ownerID uuid.UUID, req request_models.TripRequest) (*dbm.Trip, string, error) {
	args := m.Called(ctx, ownerID, req)
	trip, _ := args.Get(0).(*dbm.Trip)
	return trip, args.String(1), args.Error(2)
}

func (m *mockPlanner) ResumeTrip(ctx context.Context, tripID, ownerID uuid.UUID) (string, error) {
	args := m.Called(ctx, tripID, ownerID)
	return args.String(0), args.Error(1)
}

func (m *mockPlanner) UpdateTrip(ctx context.Context, tripID, ownerID uuid.UUID, message string) (string, error) {
	args := m.Called(ctx, tripID, ownerID, message)
	return args.String(0), args.Error(1)
}

func (m *mockPlanner) GetTrip(ctx context.Context, tripID, ownerID uuid.UUID) (*dbm.Trip, error) {
	args := m.Called(ctx, tripID, ownerID)
	trip, _ := args.Get(0).(*dbm.Trip)
	return trip, args.Error(1)
}

func (m *mockPlanner) RunCreate(ctx context.Context, tripID, ownerID uuid.UUID, instanceID string) error {
	return m.Called(ctx, tripID, ownerID, instanceID).Error(0)
}

func (m *mockPlanner) RunUpdate(ctx context.Context, tripID, ownerID uuid.UUID, message, instanceID string) error {
	return m.Called(ctx, tripID, ownerID, message, instanceID).Error(0)
}

type stubSubscriber struct {
	events []resp.ProgressEvent
}

func (s stubSubscriber) Subscribe(_ context.Context, _ string) (<-chan resp.ProgressEvent, error) {
	ch := make(chan resp.ProgressEvent, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func newTestRouter(tc *TripController, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	r.POST("/trips", tc.CreateTripHandler)
	r.GET("/trips/:id", tc.GetTripHandler)
	r.POST("/trips/:id/plan", tc.PlanTripHandler)
	r.POST("/trips/:id/feedback", tc.FeedbackHandler)
	r.GET("/trips/:id/events", tc.EventsHandler)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var out utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateTripHandler_Accepted(t *testing.T) {
	planner := &mockPlanner{}
	userID := uuid.New()
	trip := &dbm.Trip{Destination: "Lisbon", Status: dbm.TripStatusPending, Itinerary: datatypes.JSON("[]")}
	trip.ID = uuid.New()
	planner.On("CreateTrip", mock.Anything, userID, mock.MatchedBy(func(r request_models.TripRequest) bool {
		return r.Destination == "Lisbon" && r.Travelers == 2
	})).Return(trip, "inst-1", nil)

	w := doJSON(newTestRouter(NewTripController(planner, nil), userID), http.MethodPost, "/trips",
		`{"destination":"Lisbon","travelers":2,"preferences":"food and tiles"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	env := decodeEnvelope(t, w)
	assert.NotEmpty(t, env.TraceID)
	data := env.Data.(map[string]any)
	assert.Equal(t, "inst-1", data["instance_id"])
	assert.Equal(t, trip.ID.String(), data["trip_id"])
	planner.AssertExpectations(t)
}

func TestFeedbackHandler(t *testing.T) {
	tripID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name     string
		body     string
		planErr  error
		wantCode int
	}{
		{"accepted", `{"message":"make day 2 slower"}`, nil, http.StatusAccepted},
		{"empty message", `{"message":"   "}`, nil, http.StatusBadRequest},
		{"not found", `{"message":"hi"}`, utils.ErrTripNotFound, http.StatusNotFound},
		{"not owner", `{"message":"hi"}`, utils.ErrTripOwnership, http.StatusForbidden},
		{"pending trip", `{"message":"hi"}`, fmt.Errorf("%w: trip has no itinerary yet", utils.ErrInvalidInput), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			planner := &mockPlanner{}
			planner.On("UpdateTrip", mock.Anything, tripID, userID, mock.Anything).Return("inst-2", tc.planErr)

			w := doJSON(newTestRouter(NewTripController(planner, nil), userID), http.MethodPost,
				"/trips/"+tripID.String()+"/feedback", tc.body)

			assert.Equal(t, tc.wantCode, w.Code)
		})
	}
}

func TestPlanTripHandler_InvalidID(t *testing.T) {
	planner := &mockPlanner{}

	w := doJSON(newTestRouter(NewTripController(planner, nil), uuid.New()), http.MethodPost, "/trips/not-a-uuid/plan", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	planner.AssertNotCalled(t, "ResumeTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTripHandler_ReturnsCenter(t *testing.T) {
	planner := &mockPlanner{}
	userID := uuid.New()
	trip := &dbm.Trip{
		Title:     "Three days in Lisbon",
		Status:    dbm.TripStatusDraft,
		Latitude:  38.72,
		Longitude: -9.14,
		Itinerary: datatypes.JSON(`[{"day":1,"title":"Arrival","activities":["Walk"]}]`),
		Waypoints: datatypes.JSON("[]"),
		Metadata:  datatypes.JSON("{}"),
	}
	trip.ID = uuid.New()
	planner.On("GetTrip", mock.Anything, trip.ID, userID).Return(trip, nil)

	w := doJSON(newTestRouter(NewTripController(planner, nil), userID), http.MethodGet, "/trips/"+trip.ID.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Equal(t, "draft", data["status"])
	assert.Equal(t, map[string]any{"lat": 38.72, "lng": -9.14}, data["center"])
	assert.Len(t, data["itinerary"], 1)
}

func TestEventsHandler_StreamsUntilCompleted(t *testing.T) {
	planner := &mockPlanner{}
	userID := uuid.New()
	tripID := uuid.New()
	planner.On("GetTrip", mock.Anything, tripID, userID).Return(&dbm.Trip{}, nil)
	sub := stubSubscriber{events: []resp.ProgressEvent{
		{ID: "a", TripID: tripID.String(), Step: 1, Status: resp.ProgressDone},
		{ID: "b", TripID: tripID.String(), Step: 7, Status: resp.ProgressCompleted},
		{ID: "c", TripID: tripID.String(), Step: 1, Status: resp.ProgressRunning},
	}}

	w := doJSON(newTestRouter(NewTripController(planner, sub), userID), http.MethodGet, "/trips/"+tripID.String()+"/events", "")

	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:progress"))
	assert.Contains(t, body, `"id":"b"`)
	assert.NotContains(t, body, `"id":"c"`)
}

func TestEventsHandler_NotConfigured(t *testing.T) {
	w := doJSON(newTestRouter(NewTripController(&mockPlanner{}, nil), uuid.New()), http.MethodGet, "/trips/"+uuid.NewString()+"/events", "")

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
