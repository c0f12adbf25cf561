package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saeid-a/FitOnboardBack/internal/metrics"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
	"github.com/saeid-a/FitOnboardBack/internal/snapshot"
	"go.uber.org/zap"
)

// Container pairs an engine with the snapshot it was loaded from. Save is
// called after every transition.
type Container struct {
	engine          *onboarding.Engine
	store           snapshot.Store
	key             string
	skipInitialSave bool
	loadedRevision  uint64
}

// NewContainer builds a container around engine. With skipInitialSave set,
// a Save that follows Load without any mutation does not write, so a freshly
// loaded snapshot is never overwritten with defaults.
func NewContainer(engine *onboarding.Engine, store snapshot.Store, key string, skipInitialSave bool) *Container {
	return &Container{
		engine:          engine,
		store:           store,
		key:             key,
		skipInitialSave: skipInitialSave,
		loadedRevision:  engine.Revision(),
	}
}

func (c *Container) Engine() *onboarding.Engine {
	return c.engine
}

// Load rehydrates the engine from the store. A missing snapshot leaves the
// defaults in place.
func (c *Container) Load(ctx context.Context) error {
	data, err := c.store.Load(ctx, c.key)
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := c.engine.Rehydrate(data); err != nil {
		return err
	}
	c.loadedRevision = c.engine.Revision()
	return nil
}

// Dirty reports whether the engine changed since it was loaded.
func (c *Container) Dirty() bool {
	return c.engine.Revision() != c.loadedRevision
}

func (c *Container) Save(ctx context.Context) error {
	if c.skipInitialSave && !c.Dirty() {
		return nil
	}
	data, err := c.engine.Snapshot()
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	c.skipInitialSave = false
	c.loadedRevision = c.engine.Revision()
	return nil
}

// Reset restores the defaults and removes the persisted snapshot.
func (c *Container) Reset(ctx context.Context) error {
	c.engine.Reset()
	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	c.loadedRevision = c.engine.Revision()
	return nil
}

type Publisher interface {
	Publish(userID string, record onboarding.Record)
}

type userInfoWriter interface {
	Upsert(ctx context.Context, userID int64, payload onboarding.Payload) (*models.UserInfo, error)
}

type DisplayValues struct {
	Weight        float64               `json:"weight"`
	DesiredWeight float64               `json:"desiredWeight"`
	WeightUnit    onboarding.WeightUnit `json:"weightUnit"`
	Height        float64               `json:"height"`
	HeightUnit    onboarding.HeightUnit `json:"heightUnit"`
}

type WizardView struct {
	Record  onboarding.Record `json:"record"`
	Display DisplayValues     `json:"display"`
}

type StepResult struct {
	WizardView
	Valid   bool   `json:"valid"`
	Warning string `json:"warning,omitempty"`
}

type NavigateResult struct {
	WizardView
	Redirected bool `json:"redirected"`
}

type SubmitResult struct {
	WizardView
	Success bool               `json:"success"`
	Warning string             `json:"warning,omitempty"`
	Payload onboarding.Payload `json:"payload"`
}

type MeasurementInput struct {
	Field string
	Value float64
	Unit  string
}

type WizardService struct {
	store        snapshot.Store
	steps        onboarding.StepTable
	userInfoRepo userInfoWriter
	publisher    Publisher
	now          func() time.Time
	log          *zap.Logger
	locks        *keyedMutex
}

func NewWizardService(
	store snapshot.Store,
	steps onboarding.StepTable,
	userInfoRepo userInfoWriter,
	publisher Publisher,
	log *zap.Logger,
) *WizardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WizardService{
		store:        store,
		steps:        steps,
		userInfoRepo: userInfoRepo,
		publisher:    publisher,
		now:          time.Now,
		log:          log,
		locks:        newKeyedMutex(),
	}
}

func stepWarning(step int) string {
	return fmt.Sprintf("step %d is incomplete", step)
}

func viewOf(engine *onboarding.Engine) WizardView {
	weight, weightUnit := engine.DisplayWeight()
	desired, _ := engine.DisplayDesiredWeight()
	height, heightUnit := engine.DisplayHeight()
	return WizardView{
		Record: engine.Record(),
		Display: DisplayValues{
			Weight:        weight,
			DesiredWeight: desired,
			WeightUnit:    weightUnit,
			Height:        height,
			HeightUnit:    heightUnit,
		},
	}
}

// withContainer serializes load, fn and save for one user. Records that
// never went through login are rejected when requireAuth is set.
func (s *WizardService) withContainer(
	ctx context.Context,
	userID int64,
	requireAuth bool,
	fn func(c *Container) error,
) (*onboarding.Engine, error) {
	id := strconv.FormatInt(userID, 10)
	unlock := s.locks.Lock(id)
	defer unlock()

	engine := onboarding.New(onboarding.WithStepTable(s.steps), onboarding.WithClock(s.now))
	container := NewContainer(engine, s.store, snapshot.UserKey(id), true)
	if err := container.Load(ctx); err != nil {
		return nil, err
	}
	if requireAuth && !engine.Record().IsAuthenticated {
		return nil, ErrNotAuthenticated
	}

	if err := fn(container); err != nil {
		return nil, err
	}

	changed := container.Dirty()
	if err := container.Save(ctx); err != nil {
		return nil, err
	}
	if changed && s.publisher != nil {
		s.publisher.Publish(id, engine.Record())
	}
	return engine, nil
}

func (s *WizardService) mutate(ctx context.Context, userID int64, fn func(e *onboarding.Engine) error) (*WizardView, error) {
	engine, err := s.withContainer(ctx, userID, true, func(c *Container) error {
		return fn(c.Engine())
	})
	if err != nil {
		return nil, err
	}
	view := viewOf(engine)
	return &view, nil
}

func (s *WizardService) State(ctx context.Context, userID int64) (*WizardView, error) {
	return s.mutate(ctx, userID, func(*onboarding.Engine) error { return nil })
}

func (s *WizardService) UpdateField(ctx context.Context, userID int64, name string, value any) (*WizardView, error) {
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		return e.UpdateField(name, value)
	})
}

func (s *WizardService) UpdateFields(ctx context.Context, userID int64, patch map[string]any) (*WizardView, error) {
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		return e.UpdateMultipleFields(patch)
	})
}

func (s *WizardService) SetStep(ctx context.Context, userID int64, step int) (*WizardView, error) {
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		e.UpdateStep(step)
		return nil
	})
}

// Navigate moves to step, or to the earliest incomplete step before it.
func (s *WizardService) Navigate(ctx context.Context, userID int64, step int) (*NavigateResult, error) {
	redirected := false
	view, err := s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		if missing, ok := e.FirstInvalidStep(step); ok {
			redirected = true
			e.UpdateStep(missing)
			return nil
		}
		e.UpdateStep(step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &NavigateResult{WizardView: *view, Redirected: redirected}, nil
}

func (s *WizardService) Advance(ctx context.Context, userID int64) (*StepResult, error) {
	var result StepResult
	view, err := s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		current := e.Record().CurrentStep
		result.Valid = e.Advance()
		if !result.Valid {
			result.Warning = stepWarning(current)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Valid {
		metrics.StepTransitions.WithLabelValues("advanced").Inc()
	} else {
		metrics.StepTransitions.WithLabelValues("blocked").Inc()
	}
	result.WizardView = *view
	return &result, nil
}

func (s *WizardService) Back(ctx context.Context, userID int64) (*WizardView, error) {
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		e.Back()
		metrics.StepTransitions.WithLabelValues("back").Inc()
		return nil
	})
}

func (s *WizardService) SetDateOfBirth(ctx context.Context, userID int64, value string) (*WizardView, error) {
	dob, err := onboarding.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("%w: dateOfBirth: %v", onboarding.ErrInvalidFieldValue, err)
	}
	if dob.After(s.now()) {
		return nil, fmt.Errorf("%w: dateOfBirth is in the future", onboarding.ErrInvalidFieldValue)
	}
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		e.CalculateAge(dob)
		return nil
	})
}

func (s *WizardService) ToggleUnits(ctx context.Context, userID int64) (*WizardView, error) {
	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		e.ToggleUnitSystem()
		return nil
	})
}

// SetMeasurement stores a weight or height given in any supported unit.
// An empty unit means the record's current display unit.
func (s *WizardService) SetMeasurement(ctx context.Context, userID int64, input MeasurementInput) (*WizardView, error) {
	if input.Value < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", onboarding.ErrInvalidFieldValue, input.Field)
	}
	unit := strings.ToLower(strings.TrimSpace(input.Unit))

	return s.mutate(ctx, userID, func(e *onboarding.Engine) error {
		system := e.Record().UnitSystem
		switch input.Field {
		case "weight", "desiredWeight":
			weightUnit := system.WeightUnit()
			if unit != "" {
				weightUnit = onboarding.WeightUnit(unit)
			}
			if weightUnit != onboarding.WeightUnitKG && weightUnit != onboarding.WeightUnitLBS {
				return fmt.Errorf("%w: unknown weight unit %q", onboarding.ErrInvalidFieldValue, unit)
			}
			if input.Field == "weight" {
				e.SetWeight(input.Value, weightUnit)
			} else {
				e.SetDesiredWeight(input.Value, weightUnit)
			}
		case "height":
			heightUnit := system.HeightUnit()
			if unit != "" {
				heightUnit = onboarding.HeightUnit(unit)
			}
			if heightUnit != onboarding.HeightUnitCM && heightUnit != onboarding.HeightUnitIN {
				return fmt.Errorf("%w: unknown height unit %q", onboarding.ErrInvalidFieldValue, unit)
			}
			e.SetHeight(input.Value, heightUnit)
		default:
			return fmt.Errorf("%w: %s", onboarding.ErrUnknownField, input.Field)
		}
		return nil
	})
}

// StepValidity reports whether step is complete without touching the record.
func (s *WizardService) StepValidity(ctx context.Context, userID int64, step int) (bool, error) {
	var valid bool
	_, err := s.withContainer(ctx, userID, true, func(c *Container) error {
		valid = c.Engine().IsStepValid(step)
		return nil
	})
	return valid, err
}

func (s *WizardService) Payload(ctx context.Context, userID int64) (*onboarding.Payload, error) {
	var payload onboarding.Payload
	_, err := s.withContainer(ctx, userID, true, func(c *Container) error {
		payload = c.Engine().FinalPayload()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// Submit stores the final payload as the user's info. Every step of the
// wizard must be valid; otherwise nothing is stored and the wizard moves to
// the first incomplete step. Only a successful write ends onboarding and
// moves the wizard forward.
func (s *WizardService) Submit(ctx context.Context, userID int64) (*SubmitResult, error) {
	var (
		result    SubmitResult
		submitErr error
	)
	engine, err := s.withContainer(ctx, userID, true, func(c *Container) error {
		e := c.Engine()
		if missing, ok := e.FirstIncompleteStep(); ok {
			e.UpdateStep(missing)
			result.Warning = stepWarning(missing)
			return nil
		}

		result.Payload = e.FinalPayload()
		info, err := s.userInfoRepo.Upsert(ctx, userID, result.Payload)
		if err != nil {
			s.log.Error("store user info", zap.Int64("user_id", userID), zap.Error(err))
			e.SetError("failed to save your answers")
			submitErr = fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
			return nil
		}

		e.MarkSubmitted(strconv.FormatInt(info.ID, 10))
		e.Advance()
		result.Success = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case submitErr != nil:
		metrics.Submissions.WithLabelValues("failed").Inc()
		return nil, submitErr
	case result.Success:
		metrics.Submissions.WithLabelValues("stored").Inc()
	default:
		metrics.Submissions.WithLabelValues("incomplete").Inc()
	}
	result.WizardView = viewOf(engine)
	return &result, nil
}

// Reset clears the record and its snapshot. It is also the logout path, so
// it does not require an authenticated record.
func (s *WizardService) Reset(ctx context.Context, userID int64) (*WizardView, error) {
	engine, err := s.withContainer(ctx, userID, false, func(c *Container) error {
		return c.Reset(ctx)
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(strconv.FormatInt(userID, 10), engine.Record())
	}
	view := viewOf(engine)
	return &view, nil
}

// AttachIdentity echoes a logged-in user into the record.
func (s *WizardService) AttachIdentity(ctx context.Context, userID int64, user onboarding.User, needsOnboarding bool) (*WizardView, error) {
	engine, err := s.withContainer(ctx, userID, false, func(c *Container) error {
		c.Engine().SetAuthenticated(user, needsOnboarding)
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := viewOf(engine)
	return &view, nil
}
