package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

// Notifier receives progress events. Delivery is at-least-once.
type Notifier interface {
	Publish(ctx context.Context, event response_models.ProgressEvent) error
}

// CancelCheck is evaluated before every step. A non-nil error aborts the instance.
type CancelCheck func(ctx context.Context, inst Instance) error

type Instance struct {
	ID         string
	TripID     string
	TotalSteps int
}

// Pipeline is the body of a workflow. It must call steps in a fixed order.
type Pipeline func(ctx context.Context, r *Run) error

type Engine struct {
	store     CheckpointStore
	notifier  Notifier
	cancel    CancelCheck
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	stepDuration metric.Float64Histogram
	stepFailures metric.Int64Counter
	stepReplays  metric.Int64Counter
}

type Option func(*Engine)

func WithCancelCheck(c CancelCheck) Option {
	return func(e *Engine) { e.cancel = c }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithScheduler(f func(d time.Duration, fn func()) *time.Timer) Option {
	return func(e *Engine) { e.afterFunc = f }
}

func NewEngine(store CheckpointStore, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		notifier:  notifier,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(e)
	}

	meter := otel.Meter("tripflow/workflow")
	var err error
	if e.stepDuration, err = meter.Float64Histogram("workflow.step.duration",
		metric.WithDescription("Workflow step duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		log.Warn().Err(err).Msg("failed to create step duration histogram")
	}
	if e.stepFailures, err = meter.Int64Counter("workflow.step.failures",
		metric.WithDescription("Number of failed workflow steps")); err != nil {
		log.Warn().Err(err).Msg("failed to create step failure counter")
	}
	if e.stepReplays, err = meter.Int64Counter("workflow.step.replays",
		metric.WithDescription("Number of steps skipped because a done checkpoint exists")); err != nil {
		log.Warn().Err(err).Msg("failed to create step replay counter")
	}
	return e
}

// Run is the handle a pipeline uses to execute its steps.
type Run struct {
	engine   *Engine
	inst     Instance
	index    int
	reported bool
}

func (r *Run) Instance() Instance { return r.inst }

// Execute runs the pipeline for one instance. Re-invoking with the same instance id replays
// done steps from their checkpoints instead of running them again.
func (e *Engine) Execute(ctx context.Context, inst Instance, pipeline Pipeline) error {
	run := &Run{engine: e, inst: inst}
	logger := log.With().Str("instance_id", inst.ID).Str("trip_id", inst.TripID).Logger()
	logger.Info().Msg("workflow started")

	err := pipeline(ctx, run)
	if err == nil {
		logger.Info().Msg("workflow completed")
		return nil
	}

	var suspended *SuspendedError
	if errors.As(err, &suspended) {
		delay := suspended.Until.Sub(e.now())
		if delay < 0 {
			delay = 0
		}
		e.afterFunc(delay, func() {
			if err := e.Execute(context.Background(), inst, pipeline); err != nil && !IsSuspended(err) {
				log.Error().Err(err).Str("instance_id", inst.ID).Msg("resumed workflow failed")
			}
		})
		logger.Info().Time("until", suspended.Until).Msg("workflow suspended")
		return err
	}

	if !run.reported {
		run.emitFailure(ctx, err)
	}
	logger.Error().Err(err).Msg("workflow aborted")
	return err
}

// Step describes one named unit of work. Describe builds the progress message and payload
// from the step output.
type Step[T any] struct {
	Name     string
	Title    string
	NonFatal bool
	Run      func(ctx context.Context) (T, error)
	Describe func(out T) (string, any)
}

// Do executes a step exactly once per instance. A step already checkpointed as done is
// decoded from its checkpoint and its notification is only re-sent if it was never marked
// as delivered.
func Do[T any](ctx context.Context, r *Run, s Step[T]) (T, error) {
	var zero T
	e := r.engine
	r.index++
	idx := r.index
	logger := log.With().Str("instance_id", r.inst.ID).Str("step", s.Name).Int("index", idx).Logger()

	if err := r.checkCancel(ctx); err != nil {
		return zero, err
	}

	cp, err := e.store.Load(ctx, r.inst.ID, s.Name)
	if err != nil {
		return zero, fmt.Errorf("load checkpoint %s: %w", s.Name, err)
	}

	if cp != nil && cp.Status == StatusDone {
		var out T
		if len(cp.Output) > 0 {
			if err := json.Unmarshal(cp.Output, &out); err != nil {
				return zero, fmt.Errorf("decode checkpoint %s: %w", s.Name, err)
			}
		}
		e.count(ctx, e.stepReplays, s.Name)
		logger.Debug().Msg("step replayed from checkpoint")
		if !cp.Notified {
			if cp.Error != "" {
				r.publish(ctx, idx, s, response_models.ProgressWarning, cp.Error, nil)
			} else {
				msg, data := describe(s, out)
				r.publish(ctx, idx, s, response_models.ProgressDone, msg, data)
			}
		}
		return out, nil
	}

	if err := e.store.Save(ctx, &Checkpoint{
		InstanceID: r.inst.ID, StepName: s.Name, StepIndex: idx, Status: StatusPending,
	}); err != nil {
		return zero, fmt.Errorf("save checkpoint %s: %w", s.Name, err)
	}

	start := e.now()
	out, runErr := s.Run(ctx)
	elapsed := e.now().Sub(start)
	if e.stepDuration != nil {
		e.stepDuration.Record(ctx, float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.String("workflow.step", s.Name)))
	}

	if runErr != nil {
		var suspended *SuspendedError
		if errors.As(runErr, &suspended) {
			return zero, runErr
		}
		e.count(ctx, e.stepFailures, s.Name)

		if s.NonFatal && !utils.IsFatal(runErr) && ctx.Err() == nil {
			logger.Warn().Err(runErr).Dur("duration", elapsed).Msg("non-fatal step failed, continuing")
			if err := e.store.Save(ctx, &Checkpoint{
				InstanceID: r.inst.ID, StepName: s.Name, StepIndex: idx, Status: StatusDone, Error: runErr.Error(),
			}); err != nil {
				return zero, fmt.Errorf("save checkpoint %s: %w", s.Name, err)
			}
			r.publish(ctx, idx, s, response_models.ProgressWarning, runErr.Error(), nil)
			return zero, nil
		}

		logger.Error().Err(runErr).Dur("duration", elapsed).Msg("step failed")
		if err := e.store.Save(ctx, &Checkpoint{
			InstanceID: r.inst.ID, StepName: s.Name, StepIndex: idx, Status: StatusFailed, Error: runErr.Error(),
		}); err != nil {
			logger.Error().Err(err).Msg("failed to save failed checkpoint")
		}
		stepErr := &StepError{Step: s.Name, Err: runErr}
		r.emitFailure(ctx, stepErr)
		return zero, stepErr
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("encode output of %s: %w", s.Name, err)
	}
	if err := e.store.Save(ctx, &Checkpoint{
		InstanceID: r.inst.ID, StepName: s.Name, StepIndex: idx, Status: StatusDone, Output: payload,
	}); err != nil {
		return zero, fmt.Errorf("save checkpoint %s: %w", s.Name, err)
	}
	logger.Info().Dur("duration", elapsed).Msg("step done")

	msg, data := describe(s, out)
	r.publish(ctx, idx, s, response_models.ProgressDone, msg, data)
	return out, nil
}

// Sleep is a checkpointed step that records its wake-up time. Until that time passes the
// instance is suspended and the engine re-invokes it later.
func (r *Run) Sleep(ctx context.Context, name string, d time.Duration) error {
	now := r.engine.now
	wake, err := Do(ctx, r, Step[time.Time]{
		Name:  name,
		Title: "Waiting",
		Run: func(ctx context.Context) (time.Time, error) {
			return now().Add(d).UTC(), nil
		},
		Describe: func(t time.Time) (string, any) {
			return "Resuming at " + t.Format(time.RFC3339), nil
		},
	})
	if err != nil {
		return err
	}
	if now().Before(wake) {
		return &SuspendedError{Step: name, Until: wake}
	}
	return nil
}

func (r *Run) checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("workflow cancelled: %w", err)
	}
	if r.engine.cancel != nil {
		if err := r.engine.cancel(ctx, r.inst); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) publish(ctx context.Context, idx int, s interface{ meta() (string, string) }, status response_models.ProgressStatus, msg string, data any) {
	name, title := s.meta()
	if status == response_models.ProgressDone && idx == r.inst.TotalSteps {
		status = response_models.ProgressCompleted
	}
	event := r.event(idx, title, msg, status, data)
	if err := r.engine.notifier.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("instance_id", r.inst.ID).Str("step", name).Msg("progress publish failed")
		return
	}
	if err := r.engine.store.MarkNotified(ctx, r.inst.ID, name); err != nil {
		log.Warn().Err(err).Str("instance_id", r.inst.ID).Str("step", name).Msg("failed to mark step notified")
	}
}

func (r *Run) emitFailure(ctx context.Context, cause error) {
	r.reported = true
	msg := "We could not finish planning this trip"
	if errors.Is(cause, ErrSuperseded) {
		msg = "Replaced by a newer request"
	}
	idx := r.index
	if idx == 0 {
		idx = 1
	}
	event := r.event(idx, "Failed", msg, response_models.ProgressFailed, map[string]string{"error": cause.Error()})
	// cancellation of the caller's context must not swallow the terminal event
	pubCtx := ctx
	if ctx.Err() != nil {
		pubCtx = context.WithoutCancel(ctx)
	}
	if err := r.engine.notifier.Publish(pubCtx, event); err != nil {
		log.Warn().Err(err).Str("instance_id", r.inst.ID).Msg("failure publish failed")
	}
}

func (r *Run) event(idx int, title, msg string, status response_models.ProgressStatus, data any) response_models.ProgressEvent {
	key := fmt.Sprintf("%s:%d:%s", r.inst.ID, idx, status)
	return response_models.ProgressEvent{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		InstanceID: r.inst.ID,
		TripID:     r.inst.TripID,
		Title:      title,
		Message:    msg,
		Step:       idx,
		TotalSteps: r.inst.TotalSteps,
		Status:     status,
		Data:       data,
		CreatedAt:  r.engine.now().UTC(),
	}
}

func (s Step[T]) meta() (string, string) {
	title := s.Title
	if title == "" {
		title = s.Name
	}
	return s.Name, title
}

func describe[T any](s Step[T], out T) (string, any) {
	if s.Describe == nil {
		_, title := s.meta()
		return title, nil
	}
	return s.Describe(out)
}

func (e *Engine) count(ctx context.Context, c metric.Int64Counter, step string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow.step", step)))
}
