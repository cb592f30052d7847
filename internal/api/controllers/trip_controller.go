package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbm "tripflow/internal/models/db_models"
	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/internal/services"
	"tripflow/pkg/middleware"
	"tripflow/pkg/utils"
)

type TripController struct {
	planner services.TripPlannerServiceInterface
	// progress is nil when no pub/sub backend is configured.
	progress services.ProgressSubscriber
}

func NewTripController(planner services.TripPlannerServiceInterface, progress services.ProgressSubscriber) *TripController {
	return &TripController{planner: planner, progress: progress}
}

type TripView struct {
	ID          uuid.UUID         `json:"id"`
	Status      string            `json:"status"`
	Title       string            `json:"title"`
	Destination string            `json:"destination"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	Travelers   int               `json:"travelers"`
	Budget      *float64          `json:"budget,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Itinerary   json.RawMessage   `json:"itinerary"`
	Waypoints   json.RawMessage   `json:"waypoints"`
	Metadata    json.RawMessage   `json:"metadata"`
	Center      *resp.Coordinates `json:"center,omitempty"`
}

type WorkflowStarted struct {
	TripID     uuid.UUID `json:"trip_id"`
	InstanceID string    `json:"instance_id"`
	Trip       *TripView `json:"trip,omitempty"`
}

func toTripView(t *dbm.Trip) *TripView {
	v := &TripView{
		ID:          t.ID,
		Status:      string(t.Status),
		Title:       t.Title,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Travelers:   t.Travelers,
		Budget:      t.Budget,
		Currency:    t.Currency,
		Itinerary:   json.RawMessage(t.Itinerary),
		Waypoints:   json.RawMessage(t.Waypoints),
		Metadata:    json.RawMessage(t.Metadata),
	}
	if center := (&resp.Coordinates{Lat: t.Latitude, Lng: t.Longitude}); !center.IsZero() {
		v.Center = center
	}
	return v
}

// POST /trips
func (tc *TripController) CreateTripHandler(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req request_models.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	trip, instanceID, err := tc.planner.CreateTrip(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondWithStatus(c, http.StatusAccepted, WorkflowStarted{
		TripID:     trip.ID,
		InstanceID: instanceID,
		Trip:       toTripView(trip),
	}, "Trip planning started")
}

// POST /trips/:id/plan
func (tc *TripController) PlanTripHandler(c *gin.Context) {
	userID, tripID, ok := userAndTrip(c)
	if !ok {
		return
	}
	instanceID, err := tc.planner.ResumeTrip(c.Request.Context(), tripID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondWithStatus(c, http.StatusAccepted, WorkflowStarted{TripID: tripID, InstanceID: instanceID}, "Trip planning started")
}

// POST /trips/:id/feedback
func (tc *TripController) FeedbackHandler(c *gin.Context) {
	userID, tripID, ok := userAndTrip(c)
	if !ok {
		return
	}
	var req request_models.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := req.Validate(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	instanceID, err := tc.planner.UpdateTrip(c.Request.Context(), tripID, userID, req.Message)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondWithStatus(c, http.StatusAccepted, WorkflowStarted{TripID: tripID, InstanceID: instanceID}, "Trip update started")
}

// GET /trips/:id
func (tc *TripController) GetTripHandler(c *gin.Context) {
	userID, tripID, ok := userAndTrip(c)
	if !ok {
		return
	}
	trip, err := tc.planner.GetTrip(c.Request.Context(), tripID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, toTripView(trip), "")
}

// GET /trips/:id/events streams progress as server-sent events.
func (tc *TripController) EventsHandler(c *gin.Context) {
	if tc.progress == nil {
		utils.RespondError(c, http.StatusNotImplemented, "Progress streaming is not configured")
		return
	}
	userID, tripID, ok := userAndTrip(c)
	if !ok {
		return
	}
	if _, err := tc.planner.GetTrip(c.Request.Context(), tripID, userID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	events, err := tc.progress.Subscribe(c.Request.Context(), tripID.String())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			c.SSEvent("progress", event)
			c.Writer.Flush()
			if event.Status == resp.ProgressCompleted || event.Status == resp.ProgressFailed {
				return
			}
		}
	}
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	userID, ok := v.(uuid.UUID)
	if !exists || !ok {
		utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func userAndTrip(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid trip id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, tripID, true
}
