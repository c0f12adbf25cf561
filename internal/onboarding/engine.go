package onboarding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var (
	ErrUnknownField      = errors.New("unknown field")
	ErrReadOnlyField     = errors.New("read-only field")
	ErrInvalidFieldValue = errors.New("invalid field value")
)

// age follows dateOfBirth and totalSteps follows the step table.
var readOnlyFields = map[string]struct{}{
	"age":        {},
	"totalSteps": {},
}

var recordFields = func() map[string]struct{} {
	fields := make(map[string]struct{})
	typ := reflect.TypeOf(Record{})
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		fields[name] = struct{}{}
	}
	return fields
}()

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithStepTable(table StepTable) Option {
	return func(e *Engine) {
		e.steps = table
	}
}

// Engine owns one onboarding record. It is not safe for concurrent use;
// callers serialize access per record.
type Engine struct {
	record   Record
	steps    StepTable
	now      func() time.Time
	revision uint64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		steps: DefaultStepTable(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.record = Defaults(e.steps.TotalSteps())
	return e
}

// Record returns a shallow copy of the current record. Collections are
// shared and must be treated as read-only.
func (e *Engine) Record() Record {
	return e.record
}

func (e *Engine) Steps() StepTable {
	return e.steps
}

// Revision counts committed mutations since the engine was created.
func (e *Engine) Revision() uint64 {
	return e.revision
}

func (e *Engine) commit(next Record) {
	e.record = next
	e.revision++
}

func (e *Engine) UpdateField(name string, value any) error {
	return e.UpdateMultipleFields(map[string]any{name: value})
}

// UpdateMultipleFields shallow-merges patch into the record. Either every
// key is applied or, on error, none is.
func (e *Engine) UpdateMultipleFields(patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}

	next := e.record
	target := reflect.ValueOf(&next).Elem()
	for name := range patch {
		if _, ok := readOnlyFields[name]; ok {
			return fmt.Errorf("%w: %s", ErrReadOnlyField, name)
		}
		if _, ok := recordFields[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		field, _ := lookupField(target, name)
		field.Set(reflect.Zero(field.Type()))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &next,
		ErrorUnused: true,
		DecodeHook:  wholeNumberHook,
	})
	if err != nil {
		return fmt.Errorf("build patch decoder: %w", err)
	}
	if err := decoder.Decode(patch); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFieldValue, err)
	}

	for name := range patch {
		if slot := next.collection(name); slot != nil {
			if *slot == nil {
				*slot = []string{}
			}
			*slot = dedupe(*slot)
		}
	}

	_, hasSystem := patch["unitSystem"]
	_, hasUnit := patch["weightUnit"]
	switch {
	case hasSystem && !hasUnit:
		next.WeightUnit = next.UnitSystem.WeightUnit()
	case hasUnit && !hasSystem:
		next.UnitSystem = next.WeightUnit.System()
	}

	if _, ok := patch["currentStep"]; ok {
		next.CurrentStep = e.clampStep(next.CurrentStep)
	}

	if _, ok := patch["dateOfBirth"]; ok {
		if next.DateOfBirth == "" {
			next.Age = 0
		} else {
			dob, err := ParseDate(next.DateOfBirth)
			if err != nil {
				return fmt.Errorf("%w: dateOfBirth: %v", ErrInvalidFieldValue, err)
			}
			if dob.After(e.now()) {
				return fmt.Errorf("%w: dateOfBirth is in the future", ErrInvalidFieldValue)
			}
			next.DateOfBirth = dob.Format(DateLayout)
			next.Age = AgeOn(dob, e.now())
		}
	}

	e.commit(next)
	return nil
}

// wholeNumberHook refuses to truncate fractional JSON numbers into int
// fields.
func wholeNumberHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		value := reflect.ValueOf(data).Float()
		if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
			return nil, fmt.Errorf("%v is not a whole number", data)
		}
		return int64(value), nil
	}
	return data, nil
}

// UpdateStep moves the wizard to step n without checking any rule.
func (e *Engine) UpdateStep(n int) {
	next := e.record
	next.CurrentStep = e.clampStep(n)
	e.commit(next)
}

func (e *Engine) clampStep(n int) int {
	if n < 1 {
		return 1
	}
	if total := e.record.TotalSteps; total > 0 && n > total {
		return total
	}
	return n
}

// CalculateAge stores dob together with the age derived from it.
func (e *Engine) CalculateAge(dob time.Time) int {
	next := e.record
	next.DateOfBirth = dob.Format(DateLayout)
	next.Age = AgeOn(dob, e.now())
	e.commit(next)
	return next.Age
}

// ToggleUnitSystem flips the display unit system. Stored values are
// canonical, so only the unit labels change.
func (e *Engine) ToggleUnitSystem() UnitSystem {
	next := e.record
	next.UnitSystem = next.UnitSystem.Toggle()
	next.WeightUnit = next.UnitSystem.WeightUnit()
	e.commit(next)
	return next.UnitSystem
}

func (e *Engine) SetWeight(value float64, unit WeightUnit) {
	next := e.record
	next.Weight = weightFrom(value, unit)
	e.commit(next)
}

func (e *Engine) SetDesiredWeight(value float64, unit WeightUnit) {
	next := e.record
	next.DesiredWeight = weightFrom(value, unit)
	e.commit(next)
}

func (e *Engine) SetHeight(value float64, unit HeightUnit) {
	next := e.record
	next.Height = heightFrom(value, unit)
	e.commit(next)
}

func (e *Engine) DisplayWeight() (float64, WeightUnit) {
	unit := e.record.UnitSystem.WeightUnit()
	return weightIn(e.record.Weight, unit), unit
}

func (e *Engine) DisplayDesiredWeight() (float64, WeightUnit) {
	unit := e.record.UnitSystem.WeightUnit()
	return weightIn(e.record.DesiredWeight, unit), unit
}

func (e *Engine) DisplayHeight() (float64, HeightUnit) {
	unit := e.record.UnitSystem.HeightUnit()
	return heightIn(e.record.Height, unit), unit
}

func (e *Engine) SetAuthenticated(user User, needsOnboarding bool) {
	next := e.record
	next.User = user
	next.IsAuthenticated = true
	next.NeedsOnboarding = needsOnboarding
	e.commit(next)
}

// MarkSubmitted records the stored user info and ends onboarding.
func (e *Engine) MarkSubmitted(userInfoID string) {
	next := e.record
	next.User.UserInfoID = userInfoID
	next.NeedsOnboarding = false
	next.Loading = false
	next.Error = ""
	e.commit(next)
}

func (e *Engine) SetError(message string) {
	next := e.record
	next.Loading = false
	next.Error = message
	e.commit(next)
}

func (e *Engine) IsStepValid(step int) bool {
	return e.steps.valid(e.record, step)
}

// FirstInvalidStep returns the earliest step before the given one whose
// rules do not hold.
func (e *Engine) FirstInvalidStep(before int) (int, bool) {
	for step := 1; step < before; step++ {
		if !e.steps.valid(e.record, step) {
			return step, true
		}
	}
	return 0, false
}

// FirstIncompleteStep returns the earliest step of the whole wizard whose
// rules do not hold.
func (e *Engine) FirstIncompleteStep() (int, bool) {
	return e.FirstInvalidStep(e.steps.TotalSteps() + 1)
}

// Advance moves past the current step when it is valid. The last step is
// never exceeded.
func (e *Engine) Advance() bool {
	current := e.record.CurrentStep
	if !e.IsStepValid(current) {
		return false
	}
	if current < e.record.TotalSteps {
		e.UpdateStep(current + 1)
	}
	return true
}

func (e *Engine) Back() {
	if e.record.CurrentStep > 1 {
		e.UpdateStep(e.record.CurrentStep - 1)
	}
}

func (e *Engine) FinalPayload() Payload {
	return ProjectPayload(e.record)
}

func (e *Engine) Reset() {
	e.commit(Defaults(e.steps.TotalSteps()))
}

func (e *Engine) Snapshot() ([]byte, error) {
	data, err := json.Marshal(e.record)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Rehydrate replaces the record with defaults overlaid by the snapshot.
// Keys missing from the snapshot keep their default values.
func (e *Engine) Rehydrate(data []byte) error {
	total := e.steps.TotalSteps()
	record := Defaults(total)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
	}
	record.TotalSteps = total
	if record.CurrentStep < 1 {
		record.CurrentStep = 1
	}
	if record.CurrentStep > total {
		record.CurrentStep = total
	}
	record.Loading = false
	record.Error = ""
	e.record = record
	return nil
}
