package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	dbm "tripflow/internal/models/db_models"
	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/internal/repositories"
	"tripflow/internal/workflow"
	"tripflow/pkg/utils"
)

const (
	CreateSteps = 7
	UpdateSteps = 4

	DefaultPipelineVersion = "v2"
	minMatchCount          = 12
)

// Step outputs are checkpointed as JSON, so every field must survive a round trip.

type ResearchOutput struct {
	Request     request_models.TripRequest `json:"request"`
	Destination string                     `json:"destination"`
	Data        resp.DestinationData       `json:"data"`
}

type ValidateOutput struct {
	Result resp.FeasibilityResult `json:"result"`
}

type MatchOutput struct {
	Attractions []resp.POI `json:"attractions"`
	Semantic    bool       `json:"semantic"`
}

type GenerateOutput = GenerateResult

type TranslateOutput struct {
	Days       []resp.RichDay `json:"days"`
	Language   string         `json:"language"`
	Translated bool           `json:"translated"`
}

type SaveOutput struct {
	TripID    string `json:"trip_id"`
	Status    string `json:"status"`
	Days      int    `json:"days"`
	Waypoints int    `json:"waypoints"`
}

type UpdateLoadOutput struct {
	Request     request_models.TripRequest `json:"request"`
	Destination string                     `json:"destination"`
	Days        []resp.StoredDay           `json:"days"`
	Waypoints   []resp.Waypoint            `json:"waypoints"`
	Center      resp.Coordinates           `json:"center"`
	Language    string                     `json:"language"`
	Data        resp.DestinationData       `json:"data"`
}

type UpdateOutput = UpdateResult

type TripPlannerServiceInterface interface {
	CreateTrip(ctx context.Context, ownerID uuid.UUID, req request_models.TripRequest) (*dbm.Trip, string, error)
	ResumeTrip(ctx context.Context, tripID, ownerID uuid.UUID) (string, error)
	UpdateTrip(ctx context.Context, tripID, ownerID uuid.UUID, message string) (string, error)
	GetTrip(ctx context.Context, tripID, ownerID uuid.UUID) (*dbm.Trip, error)
	RunCreate(ctx context.Context, tripID, ownerID uuid.UUID, instanceID string) error
	RunUpdate(ctx context.Context, tripID, ownerID uuid.UUID, message, instanceID string) error
}

type TripPlannerDeps struct {
	Trips           repositories.TripRepository
	Engine          *workflow.Engine
	Tracker         *SupersessionTracker
	Research        ResearchServiceInterface
	Matcher         MatcherServiceInterface
	Generator       GeneratorServiceInterface
	Translator      TranslatorServiceInterface
	Finalizer       FinalizerServiceInterface
	PipelineVersion string
	Now             func() time.Time
	// Launch runs a started workflow. Defaults to a new goroutine.
	Launch func(fn func())
}

type TripPlannerService struct {
	deps TripPlannerDeps
}

func NewTripPlannerService(deps TripPlannerDeps) *TripPlannerService {
	if deps.PipelineVersion == "" {
		deps.PipelineVersion = DefaultPipelineVersion
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Launch == nil {
		deps.Launch = func(fn func()) { go fn() }
	}
	return &TripPlannerService{deps: deps}
}

// CreateTrip stores a pending trip and starts the create workflow for it.
func (s *TripPlannerService) CreateTrip(ctx context.Context, ownerID uuid.UUID, req request_models.TripRequest) (*dbm.Trip, string, error) {
	// an omitted traveler count means one traveler
	if req.Travelers == 0 {
		req.Travelers = 1
	}
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}
	rawReq, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}

	instanceID := uuid.NewString()
	meta := resp.TripMetadata{
		Request:         rawReq,
		FeedbackHistory: []resp.FeedbackEntry{},
		PipelineVersion: s.deps.PipelineVersion,
		Language:        req.Language,
		LastInstanceID:  instanceID,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("encode metadata: %w", err)
	}

	trip := &dbm.Trip{
		OwnerID:     ownerID,
		Destination: strings.TrimSpace(req.Destination),
		Status:      dbm.TripStatusPending,
		Travelers:   req.Travelers,
		Budget:      req.Budget,
		Currency:    strings.ToUpper(req.Currency),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Itinerary:   datatypes.JSON("[]"),
		Waypoints:   datatypes.JSON("[]"),
		Metadata:    datatypes.JSON(metaJSON),
	}
	if err := s.deps.Trips.Create(ctx, trip); err != nil {
		return nil, "", err
	}

	s.start(ctx, trip.ID, instanceID, func(runCtx context.Context) error {
		return s.RunCreate(runCtx, trip.ID, ownerID, instanceID)
	})
	return trip, instanceID, nil
}

// ResumeTrip re-invokes the create workflow of a pending trip. Steps that already finished are
// replayed from their checkpoints.
func (s *TripPlannerService) ResumeTrip(ctx context.Context, tripID, ownerID uuid.UUID) (string, error) {
	trip, err := s.ownedTrip(ctx, tripID, ownerID)
	if err != nil {
		return "", err
	}
	if trip.Status != dbm.TripStatusPending {
		return "", fmt.Errorf("%w: trip is already planned", utils.ErrInvalidInput)
	}
	meta, err := decodeMetadata(trip)
	if err != nil {
		return "", err
	}
	instanceID := meta.LastInstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	s.start(ctx, tripID, instanceID, func(runCtx context.Context) error {
		return s.RunCreate(runCtx, tripID, ownerID, instanceID)
	})
	return instanceID, nil
}

// UpdateTrip starts the update workflow for a planned trip and returns its instance id.
// A newer update for the same trip supersedes this one.
func (s *TripPlannerService) UpdateTrip(ctx context.Context, tripID, ownerID uuid.UUID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", utils.ErrInvalidInput)
	}
	trip, err := s.ownedTrip(ctx, tripID, ownerID)
	if err != nil {
		return "", err
	}
	if trip.Status == dbm.TripStatusPending {
		return "", fmt.Errorf("%w: trip has no itinerary yet", utils.ErrInvalidInput)
	}

	instanceID := uuid.NewString()
	s.start(ctx, tripID, instanceID, func(runCtx context.Context) error {
		return s.RunUpdate(runCtx, tripID, ownerID, message, instanceID)
	})
	return instanceID, nil
}

func (s *TripPlannerService) GetTrip(ctx context.Context, tripID, ownerID uuid.UUID) (*dbm.Trip, error) {
	return s.ownedTrip(ctx, tripID, ownerID)
}

func (s *TripPlannerService) start(ctx context.Context, tripID uuid.UUID, instanceID string, run func(context.Context) error) {
	if s.deps.Tracker != nil {
		if err := s.deps.Tracker.Mark(ctx, tripID.String(), instanceID); err != nil {
			log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("failed to record latest instance")
		}
	}
	runCtx := context.WithoutCancel(ctx)
	s.deps.Launch(func() {
		if err := run(runCtx); err != nil && !workflow.IsSuspended(err) {
			log.Error().Err(err).Str("trip_id", tripID.String()).Str("instance_id", instanceID).Msg("trip workflow ended with error")
		}
	})
}

// RunCreate executes the create pipeline synchronously:
// research, validate, match, generate, translate, finalize, save.
func (s *TripPlannerService) RunCreate(ctx context.Context, tripID, ownerID uuid.UUID, instanceID string) error {
	inst := workflow.Instance{ID: instanceID, TripID: tripID.String(), TotalSteps: CreateSteps}
	return s.deps.Engine.Execute(ctx, inst, func(ctx context.Context, r *workflow.Run) error {
		research, err := workflow.Do(ctx, r, workflow.Step[ResearchOutput]{
			Name:  "research",
			Title: "Researching destination",
			Run: func(ctx context.Context) (ResearchOutput, error) {
				return s.researchForCreate(ctx, tripID, ownerID)
			},
			Describe: describeResearch,
		})
		if err != nil {
			return err
		}
		days := TripDays(research.Request)

		if _, err := workflow.Do(ctx, r, workflow.Step[ValidateOutput]{
			Name:     "validate",
			Title:    "Checking feasibility",
			NonFatal: true,
			Run: func(ctx context.Context) (ValidateOutput, error) {
				result := ValidateFeasibility(research.Request, research.Data)
				if !result.Feasible {
					return ValidateOutput{}, utils.NewFatalError("trip is not feasible",
						fmt.Errorf("%w: %s", utils.ErrInvalidInput, strings.Join(result.Warnings, "; ")))
				}
				return ValidateOutput{Result: result}, nil
			},
			Describe: describeFeasibility,
		}); err != nil {
			return err
		}

		match, err := workflow.Do(ctx, r, workflow.Step[MatchOutput]{
			Name:  "match",
			Title: "Matching places to your interests",
			Run: func(ctx context.Context) (MatchOutput, error) {
				return s.match(ctx, research, days), nil
			},
			Describe: func(out MatchOutput) (string, any) {
				return fmt.Sprintf("Selected %d places", len(out.Attractions)), map[string]any{"semantic": out.Semantic}
			},
		})
		if err != nil {
			return err
		}

		generated, err := workflow.Do(ctx, r, workflow.Step[GenerateOutput]{
			Name:  "generate",
			Title: "Writing your itinerary",
			Run: func(ctx context.Context) (GenerateOutput, error) {
				return s.deps.Generator.Generate(ctx, GenerateInput{
					Request:     research.Request,
					Destination: research.Destination,
					Days:        days,
					Attractions: match.Attractions,
					Restaurants: research.Data.Restaurants,
				}), nil
			},
			Describe: func(out GenerateOutput) (string, any) {
				return fmt.Sprintf("Drafted %d days", len(out.Days)), map[string]any{"title": out.Title, "fallback": out.FallbackUsed}
			},
		})
		if err != nil {
			return err
		}

		translated, err := workflow.Do(ctx, r, workflow.Step[TranslateOutput]{
			Name:  "translate",
			Title: "Translating",
			Run: func(ctx context.Context) (TranslateOutput, error) {
				lang := research.Request.Language
				out, ok := s.deps.Translator.Translate(ctx, generated.Days, lang)
				return TranslateOutput{Days: out, Language: lang, Translated: ok}, nil
			},
			Describe: func(out TranslateOutput) (string, any) {
				if !out.Translated {
					return "No translation needed", nil
				}
				return "Translated to " + out.Language, nil
			},
		})
		if err != nil {
			return err
		}

		final, err := workflow.Do(ctx, r, workflow.Step[FinalizeOutput]{
			Name:  "finalize",
			Title: "Locating places",
			Run: func(ctx context.Context) (FinalizeOutput, error) {
				return s.deps.Finalizer.Finalize(ctx, FinalizeInput{
					Destination: research.Destination,
					Region:      research.Data.Facts.Region,
					Center:      resp.Coordinates{Lat: research.Data.Facts.Latitude, Lng: research.Data.Facts.Longitude},
					Title:       generated.Title,
					Reasoning:   generated.Reasoning,
					Days:        translated.Days,
				}), nil
			},
			Describe: describeFinalize,
		})
		if err != nil {
			return err
		}

		_, err = workflow.Do(ctx, r, workflow.Step[SaveOutput]{
			Name:  "save",
			Title: "Saving trip",
			Run: func(ctx context.Context) (SaveOutput, error) {
				return s.saveCreated(ctx, tripID, instanceID, research, final, generated.FallbackUsed)
			},
			Describe: func(out SaveOutput) (string, any) {
				return "Your trip is ready", out
			},
		})
		return err
	})
}

func (s *TripPlannerService) researchForCreate(ctx context.Context, tripID, ownerID uuid.UUID) (ResearchOutput, error) {
	trip, err := s.ownedTrip(ctx, tripID, ownerID)
	if err != nil {
		return ResearchOutput{}, err
	}
	req, err := decodeRequest(trip)
	if err != nil {
		return ResearchOutput{}, err
	}
	if strings.TrimSpace(req.Preferences) == "" {
		return ResearchOutput{}, utils.NewFatalError("load request", utils.ErrMissingPreferences)
	}

	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		if destination, err = s.deps.Generator.SuggestDestination(ctx, req.Preferences, req.UserLocation); err != nil {
			return ResearchOutput{}, err
		}
		req.Destination = destination
	}

	data, err := s.deps.Research.Research(ctx, destination)
	if err != nil {
		return ResearchOutput{}, err
	}
	return ResearchOutput{Request: req, Destination: destination, Data: *data}, nil
}

func (s *TripPlannerService) match(ctx context.Context, research ResearchOutput, days int) MatchOutput {
	count := 4 * days
	if count < minMatchCount {
		count = minMatchCount
	}
	matched, err := s.deps.Matcher.Match(ctx, research.Destination, research.Request.Preferences, count)
	if err != nil {
		log.Warn().Err(err).Str("destination", research.Destination).Msg("semantic match failed, using all attractions")
	}
	selected, fellBack := SelectAttractions(matched, research.Data.Attractions, days)
	return MatchOutput{Attractions: selected, Semantic: !fellBack}
}

func (s *TripPlannerService) saveCreated(ctx context.Context, tripID uuid.UUID, instanceID string, research ResearchOutput, final FinalizeOutput, fallback bool) (SaveOutput, error) {
	trip, err := s.deps.Trips.GetByID(ctx, tripID)
	if err != nil {
		return SaveOutput{}, err
	}
	meta, err := decodeMetadata(trip)
	if err != nil {
		return SaveOutput{}, err
	}
	meta.PipelineVersion = s.deps.PipelineVersion
	meta.Language = research.Request.Language
	meta.Reasoning = final.Reasoning
	meta.Warnings = ValidateFeasibility(research.Request, research.Data).Warnings
	meta.FallbackUsed = fallback
	meta.LastInstanceID = instanceID
	meta.LastError = ""

	fields, err := itineraryFields(final, meta)
	if err != nil {
		return SaveOutput{}, err
	}
	fields["status"] = string(dbm.TripStatusDraft)
	fields["destination"] = research.Destination
	if final.Title != "" {
		fields["title"] = final.Title
	}
	if !final.Center.IsZero() {
		fields["latitude"] = final.Center.Lat
		fields["longitude"] = final.Center.Lng
	}
	if err := s.deps.Trips.Update(ctx, tripID, fields); err != nil {
		return SaveOutput{}, err
	}
	return SaveOutput{
		TripID:    tripID.String(),
		Status:    string(dbm.TripStatusDraft),
		Days:      len(final.Days),
		Waypoints: len(final.Waypoints),
	}, nil
}

// RunUpdate executes the update pipeline synchronously: load and research, AI update,
// validate, finalize and save.
func (s *TripPlannerService) RunUpdate(ctx context.Context, tripID, ownerID uuid.UUID, message, instanceID string) error {
	inst := workflow.Instance{ID: instanceID, TripID: tripID.String(), TotalSteps: UpdateSteps}
	return s.deps.Engine.Execute(ctx, inst, func(ctx context.Context, r *workflow.Run) error {
		loaded, err := workflow.Do(ctx, r, workflow.Step[UpdateLoadOutput]{
			Name:  "load",
			Title: "Reading your feedback",
			Run: func(ctx context.Context) (UpdateLoadOutput, error) {
				return s.loadForUpdate(ctx, tripID, ownerID, message, instanceID)
			},
			Describe: func(out UpdateLoadOutput) (string, any) {
				return fmt.Sprintf("Loaded %d days in %s", len(out.Days), out.Destination), nil
			},
		})
		if err != nil {
			return err
		}

		updated, err := workflow.Do(ctx, r, workflow.Step[UpdateOutput]{
			Name:  "update",
			Title: "Updating itinerary",
			Run: func(ctx context.Context) (UpdateOutput, error) {
				return s.deps.Generator.Update(ctx, UpdateInput{
					Destination: loaded.Destination,
					Current:     resp.ToRichDays(loaded.Days),
					Feedback:    message,
					Language:    loaded.Language,
					Attractions: loaded.Data.Attractions,
				}), nil
			},
			Describe: func(out UpdateOutput) (string, any) {
				if !out.Applied {
					return "Kept your current itinerary", map[string]any{"error": out.Error}
				}
				return fmt.Sprintf("Updated itinerary with %d days", len(out.Days)), out.Modifications
			},
		})
		if err != nil {
			return err
		}

		validated, err := workflow.Do(ctx, r, workflow.Step[ValidateOutput]{
			Name:     "validate",
			Title:    "Checking feasibility",
			NonFatal: true,
			Run: func(ctx context.Context) (ValidateOutput, error) {
				req := ApplyModifications(loaded.Request, updated.Modifications, len(updated.Days))
				return ValidateOutput{Result: ValidateFeasibility(req, loaded.Data)}, nil
			},
			Describe: describeFeasibility,
		})
		if err != nil {
			return err
		}

		_, err = workflow.Do(ctx, r, workflow.Step[SaveOutput]{
			Name:  "save",
			Title: "Saving changes",
			Run: func(ctx context.Context) (SaveOutput, error) {
				return s.saveUpdated(ctx, tripID, instanceID, loaded, updated, validated.Result.Warnings)
			},
			Describe: func(out SaveOutput) (string, any) {
				return "Your trip is up to date", out
			},
		})
		return err
	})
}

func (s *TripPlannerService) loadForUpdate(ctx context.Context, tripID, ownerID uuid.UUID, message, instanceID string) (UpdateLoadOutput, error) {
	trip, err := s.ownedTrip(ctx, tripID, ownerID)
	if err != nil {
		return UpdateLoadOutput{}, err
	}
	meta, err := decodeMetadata(trip)
	if err != nil {
		return UpdateLoadOutput{}, err
	}

	// feedback is persisted before any model call, once per instance
	recorded := false
	for _, f := range meta.FeedbackHistory {
		if f.InstanceID == instanceID {
			recorded = true
			break
		}
	}
	if !recorded {
		meta.FeedbackHistory = append(meta.FeedbackHistory, resp.FeedbackEntry{
			Message:    message,
			InstanceID: instanceID,
			At:         s.deps.Now().Unix(),
		})
		meta.LastInstanceID = instanceID
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return UpdateLoadOutput{}, fmt.Errorf("encode metadata: %w", err)
		}
		if err := s.deps.Trips.Update(ctx, tripID, map[string]any{"metadata": datatypes.JSON(metaJSON)}); err != nil {
			return UpdateLoadOutput{}, err
		}
	}

	var days []resp.StoredDay
	if len(trip.Itinerary) > 0 {
		if err := json.Unmarshal(trip.Itinerary, &days); err != nil {
			return UpdateLoadOutput{}, fmt.Errorf("decode itinerary: %w", err)
		}
	}
	if len(days) == 0 {
		return UpdateLoadOutput{}, utils.NewFatalError("load itinerary", fmt.Errorf("%w: trip has no itinerary yet", utils.ErrInvalidInput))
	}
	var waypoints []resp.Waypoint
	if len(trip.Waypoints) > 0 {
		if err := json.Unmarshal(trip.Waypoints, &waypoints); err != nil {
			return UpdateLoadOutput{}, fmt.Errorf("decode waypoints: %w", err)
		}
	}
	req, err := decodeRequest(trip)
	if err != nil {
		return UpdateLoadOutput{}, err
	}
	lang := meta.Language
	if lang == "" {
		lang = req.Language
	}

	out := UpdateLoadOutput{
		Request:     req,
		Destination: trip.Destination,
		Days:        days,
		Waypoints:   waypoints,
		Center:      resp.Coordinates{Lat: trip.Latitude, Lng: trip.Longitude},
		Language:    lang,
	}
	data, err := s.deps.Research.Research(ctx, trip.Destination)
	if err != nil {
		log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("research for update failed, continuing without places")
	} else {
		out.Data = *data
	}
	return out, nil
}

func (s *TripPlannerService) saveUpdated(ctx context.Context, tripID uuid.UUID, instanceID string, loaded UpdateLoadOutput, updated UpdateOutput, warnings []string) (SaveOutput, error) {
	trip, err := s.deps.Trips.GetByID(ctx, tripID)
	if err != nil {
		return SaveOutput{}, err
	}
	meta, err := decodeMetadata(trip)
	if err != nil {
		return SaveOutput{}, err
	}
	meta.PipelineVersion = s.deps.PipelineVersion
	meta.Reasoning = updated.Reasoning
	meta.LastInstanceID = instanceID

	if !updated.Applied {
		// the stored itinerary stays as it was
		meta.LastError = updated.Error
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return SaveOutput{}, fmt.Errorf("encode metadata: %w", err)
		}
		if err := s.deps.Trips.Update(ctx, tripID, map[string]any{"metadata": datatypes.JSON(metaJSON)}); err != nil {
			return SaveOutput{}, err
		}
		return SaveOutput{TripID: tripID.String(), Status: string(trip.Status), Days: len(loaded.Days)}, nil
	}

	final := s.deps.Finalizer.Finalize(ctx, FinalizeInput{
		Destination: loaded.Destination,
		Region:      loaded.Data.Facts.Region,
		Center:      loaded.Center,
		Title:       trip.Title,
		Reasoning:   updated.Reasoning,
		Days:        updated.Days,
		Known:       loaded.Waypoints,
	})

	req := ApplyModifications(loaded.Request, updated.Modifications, len(updated.Days))
	if rawReq, err := json.Marshal(req); err == nil {
		meta.Request = rawReq
	}
	meta.LastError = ""
	meta.Warnings = warnings
	meta.Modifications = updated.Modifications
	meta.DayCountChanged = updated.DayCountChanged

	fields, err := itineraryFields(final, meta)
	if err != nil {
		return SaveOutput{}, err
	}
	fields["status"] = string(dbm.TripStatusActive)
	if m := updated.Modifications; m != nil {
		if m.Destination != nil && strings.TrimSpace(*m.Destination) != "" {
			fields["destination"] = strings.TrimSpace(*m.Destination)
		}
		if m.Budget != nil {
			fields["budget"] = *m.Budget
		}
		if m.Travelers != nil && *m.Travelers >= 1 {
			fields["travelers"] = *m.Travelers
		}
	}
	if req.StartDate != "" && req.EndDate != loaded.Request.EndDate {
		fields["end_date"] = req.EndDate
	}
	if err := s.deps.Trips.Update(ctx, tripID, fields); err != nil {
		return SaveOutput{}, err
	}
	return SaveOutput{
		TripID:    tripID.String(),
		Status:    string(dbm.TripStatusActive),
		Days:      len(final.Days),
		Waypoints: len(final.Waypoints),
	}, nil
}

// ApplyModifications folds declared trip-level changes into the request. When the day count
// changed and a start date is known the end date follows it.
func ApplyModifications(req request_models.TripRequest, mods *resp.Modifications, days int) request_models.TripRequest {
	if mods != nil {
		if mods.Destination != nil && strings.TrimSpace(*mods.Destination) != "" {
			req.Destination = strings.TrimSpace(*mods.Destination)
		}
		if mods.Budget != nil {
			b := *mods.Budget
			req.Budget = &b
		}
		if mods.Travelers != nil && *mods.Travelers >= 1 {
			req.Travelers = *mods.Travelers
		}
		if mods.Preferences != nil && strings.TrimSpace(*mods.Preferences) != "" {
			req.Preferences = strings.TrimSpace(*mods.Preferences)
		}
	}
	if start, ok := req.Start(); ok && days > 0 {
		req.EndDate = start.AddDate(0, 0, days-1).Format(request_models.DateLayout)
	}
	return req
}

func (s *TripPlannerService) ownedTrip(ctx context.Context, tripID, ownerID uuid.UUID) (*dbm.Trip, error) {
	trip, err := s.deps.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OwnerID != ownerID {
		return nil, utils.ErrTripOwnership
	}
	return trip, nil
}

func itineraryFields(final FinalizeOutput, meta resp.TripMetadata) (map[string]any, error) {
	itinerary, err := json.Marshal(final.Days)
	if err != nil {
		return nil, fmt.Errorf("encode itinerary: %w", err)
	}
	waypoints := final.Waypoints
	if waypoints == nil {
		waypoints = []resp.Waypoint{}
	}
	wp, err := json.Marshal(waypoints)
	if err != nil {
		return nil, fmt.Errorf("encode waypoints: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return map[string]any{
		"itinerary": datatypes.JSON(itinerary),
		"waypoints": datatypes.JSON(wp),
		"metadata":  datatypes.JSON(metaJSON),
	}, nil
}

func decodeMetadata(trip *dbm.Trip) (resp.TripMetadata, error) {
	var meta resp.TripMetadata
	if len(trip.Metadata) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(trip.Metadata, &meta); err != nil {
		return meta, fmt.Errorf("decode trip metadata: %w", err)
	}
	return meta, nil
}

// decodeRequest rebuilds the original request from metadata, with the trip columns taking
// precedence.
func decodeRequest(trip *dbm.Trip) (request_models.TripRequest, error) {
	meta, err := decodeMetadata(trip)
	if err != nil {
		return request_models.TripRequest{}, err
	}
	var req request_models.TripRequest
	if len(meta.Request) > 0 {
		if err := json.Unmarshal(meta.Request, &req); err != nil {
			return req, fmt.Errorf("decode trip request: %w", err)
		}
	}
	if trip.Destination != "" {
		req.Destination = trip.Destination
	}
	if trip.Travelers > 0 {
		req.Travelers = trip.Travelers
	}
	if trip.Budget != nil {
		req.Budget = trip.Budget
	}
	if trip.StartDate != "" {
		req.StartDate = trip.StartDate
	}
	if trip.EndDate != "" {
		req.EndDate = trip.EndDate
	}
	if req.Travelers < 1 {
		req.Travelers = 1
	}
	return req, nil
}

func describeResearch(out ResearchOutput) (string, any) {
	msg := fmt.Sprintf("Found %d attractions and %d restaurants in %s",
		len(out.Data.Attractions), len(out.Data.Restaurants), out.Destination)
	return msg, map[string]any{
		"destination": out.Destination,
		"country":     out.Data.Facts.Country,
		"currency":    out.Data.Facts.Currency,
	}
}

func describeFeasibility(out ValidateOutput) (string, any) {
	if len(out.Result.Warnings) == 0 {
		return "Your trip looks good", out.Result
	}
	return strings.Join(out.Result.Warnings, " "), out.Result
}

func describeFinalize(out FinalizeOutput) (string, any) {
	return fmt.Sprintf("Placed %d stops on the map", len(out.Waypoints)), map[string]any{"geocoded": out.Geocoded}
}
