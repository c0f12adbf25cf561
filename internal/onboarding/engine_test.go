package onboarding

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	}
}

func TestCalculateAgeCountsFullYears(t *testing.T) {
	engine := New(WithClock(fixedClock(2026, time.October, 19)))

	cases := []struct {
		dob  time.Time
		want int
	}{
		{time.Date(1990, time.October, 19, 0, 0, 0, 0, time.UTC), 36},
		{time.Date(1990, time.October, 20, 0, 0, 0, 0, time.UTC), 35},
		{time.Date(1990, time.November, 1, 0, 0, 0, 0, time.UTC), 35},
		{time.Date(1990, time.January, 31, 0, 0, 0, 0, time.UTC), 36},
		{time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := engine.CalculateAge(tc.dob); got != tc.want {
			t.Fatalf("dob %s: expected age %d, got %d", tc.dob.Format(DateLayout), tc.want, got)
		}
		record := engine.Record()
		if record.DateOfBirth != tc.dob.Format(DateLayout) || record.Age != tc.want {
			t.Fatalf("expected dob and age stored together, got %q/%d", record.DateOfBirth, record.Age)
		}
	}
}

func TestUpdateFieldDateOfBirthRecomputesAge(t *testing.T) {
	engine := New(WithClock(fixedClock(2026, time.March, 1)))

	if err := engine.UpdateField("dateOfBirth", "2000-03-02"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if got := engine.Record().Age; got != 25 {
		t.Fatalf("expected age 25, got %d", got)
	}

	if err := engine.UpdateField("age", 40); !errors.Is(err, ErrReadOnlyField) {
		t.Fatalf("expected ErrReadOnlyField, got %v", err)
	}
}

func TestResetThenEmptyRehydrateYieldsDefaults(t *testing.T) {
	engine := New()
	if err := engine.UpdateMultipleFields(map[string]any{
		"gender":             "male",
		"selectedEquipments": []string{"dumbbell"},
		"currentStep":        7,
	}); err != nil {
		t.Fatalf("UpdateMultipleFields: %v", err)
	}

	engine.Reset()
	if err := engine.Rehydrate(nil); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	want := Defaults(DefaultStepTable().TotalSteps())
	if got := engine.Record(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected defaults %+v, got %+v", want, got)
	}
}

func TestRehydrateOverlaysSnapshotOnDefaults(t *testing.T) {
	engine := New()
	if err := engine.Rehydrate([]byte(`{"gender":"female","currentStep":4,"loading":true}`)); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	record := engine.Record()
	if record.Gender != "female" || record.CurrentStep != 4 {
		t.Fatalf("expected snapshot fields applied, got %+v", record)
	}
	if record.UnitSystem != UnitSystemMetric || record.WeeklyWeightLossGoal != 0.5 {
		t.Fatalf("expected defaults kept for missing keys, got %+v", record)
	}
	if record.Loading {
		t.Fatal("expected transient loading flag to be cleared")
	}
}

func TestUpdateFieldLastWriteWins(t *testing.T) {
	engine := New()
	for _, value := range []string{"vegan", "keto", "paleo"} {
		if err := engine.UpdateField("dietType", value); err != nil {
			t.Fatalf("UpdateField: %v", err)
		}
	}
	if got := engine.Record().DietType; got != "paleo" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestUpdateMultipleFieldsIsAtomic(t *testing.T) {
	engine := New()
	before := engine.Revision()

	err := engine.UpdateMultipleFields(map[string]any{
		"gender":       "male",
		"trainingDays": "many",
	})
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Fatalf("expected ErrInvalidFieldValue, got %v", err)
	}
	if engine.Record().Gender != "" {
		t.Fatal("expected no field applied from a failing patch")
	}
	if engine.Revision() != before {
		t.Fatal("expected revision unchanged after failing patch")
	}

	if err := engine.UpdateField("favouriteColour", "red"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestUpdateMultipleFieldsDecodesJSONShapes(t *testing.T) {
	engine := New()
	err := engine.UpdateMultipleFields(map[string]any{
		"trainingDays":      float64(4),
		"allergicFoodItems": []any{"peanut", "milk", "peanut"},
		"user":              map[string]any{"email": "sam@example.com"},
		"unitSystem":        "imperial",
	})
	if err != nil {
		t.Fatalf("UpdateMultipleFields: %v", err)
	}

	record := engine.Record()
	if record.TrainingDays != 4 {
		t.Fatalf("expected 4 training days, got %d", record.TrainingDays)
	}
	if !reflect.DeepEqual(record.AllergicFoodItems, []string{"peanut", "milk"}) {
		t.Fatalf("expected duplicates suppressed, got %v", record.AllergicFoodItems)
	}
	if record.User.Email != "sam@example.com" {
		t.Fatalf("expected nested user decoded, got %+v", record.User)
	}
	if record.WeightUnit != WeightUnitLBS {
		t.Fatalf("expected weight unit to follow unit system, got %q", record.WeightUnit)
	}
}

func TestFinalPayloadDoesNotMutateRecord(t *testing.T) {
	engine := New()
	if err := engine.UpdateMultipleFields(map[string]any{
		"gender":             "female",
		"dateOfBirth":        "1992-07-04",
		"trainingDays":       3,
		"workoutLocation":    "home",
		"selectedEquipments": []string{"kettlebell", "mat"},
		"injuries":           []string{"knee"},
		"selectedCountry":    "DE",
		"selectedCity":       "Berlin",
		"user":               map[string]any{"userInfoId": "u-1"},
	}); err != nil {
		t.Fatalf("UpdateMultipleFields: %v", err)
	}

	before := engine.Record()
	payload := engine.FinalPayload()
	after := engine.Record()

	if !reflect.DeepEqual(before, after) {
		t.Fatal("expected FinalPayload to leave the record unchanged")
	}
	if &payload.Equipments[0] != &after.SelectedEquipments[0] {
		t.Fatal("expected equipments to share the record's collection")
	}
	if &payload.Injuries[0] != &after.Injuries[0] {
		t.Fatal("expected injuries to share the record's collection")
	}
	if after.Gender != "female" || after.WorkoutLocation != "home" {
		t.Fatalf("expected source casing untouched, got %q/%q", after.Gender, after.WorkoutLocation)
	}

	if payload.Gender != "FEMALE" || payload.WorkoutLocation != "HOME" {
		t.Fatalf("expected uppercased gender and location, got %q/%q", payload.Gender, payload.WorkoutLocation)
	}
	if payload.DB != "1992-07-04T00:00:00.000Z" {
		t.Fatalf("unexpected db %q", payload.DB)
	}
	if payload.TrainingDay != 3 || payload.Country != "DE" || payload.City != "Berlin" || payload.UserID != "u-1" {
		t.Fatalf("unexpected renamed fields: %+v", payload)
	}
}

func TestUpdateLeavesUntouchedCollectionsShared(t *testing.T) {
	engine := New()
	if err := engine.UpdateField("selectedEquipments", []string{"bench"}); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	payload := engine.FinalPayload()

	if err := engine.UpdateField("selectedEquipments", []string{"rower"}); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if payload.Equipments[0] != "bench" {
		t.Fatalf("expected earlier payload unaffected by later writes, got %v", payload.Equipments)
	}
}

func TestToggleUnitSystemTwiceRestoresUnits(t *testing.T) {
	engine := New()
	engine.SetWeight(80, WeightUnitKG)
	original := engine.Record()

	engine.ToggleUnitSystem()
	toggled := engine.Record()
	if toggled.UnitSystem != UnitSystemImperial || toggled.WeightUnit != WeightUnitLBS {
		t.Fatalf("expected imperial/lbs, got %q/%q", toggled.UnitSystem, toggled.WeightUnit)
	}
	if toggled.Weight != 80 {
		t.Fatalf("expected canonical weight untouched, got %v", toggled.Weight)
	}
	if display, unit := engine.DisplayWeight(); unit != WeightUnitLBS || display != 176.37 {
		t.Fatalf("expected 176.37 lbs, got %v %s", display, unit)
	}

	engine.ToggleUnitSystem()
	restored := engine.Record()
	if restored.UnitSystem != original.UnitSystem || restored.WeightUnit != original.WeightUnit {
		t.Fatalf("expected %q/%q, got %q/%q", original.UnitSystem, original.WeightUnit, restored.UnitSystem, restored.WeightUnit)
	}
}

func TestUpdateStepIsUnconditional(t *testing.T) {
	engine := New()
	engine.UpdateStep(12)
	if got := engine.Record().CurrentStep; got != 12 {
		t.Fatalf("expected step 12, got %d", got)
	}
	engine.UpdateStep(3)
	if got := engine.Record().CurrentStep; got != 3 {
		t.Fatalf("expected step 3, got %d", got)
	}
	engine.UpdateStep(0)
	if got := engine.Record().CurrentStep; got != 1 {
		t.Fatalf("expected step clamped to 1, got %d", got)
	}
}

func TestAdvanceStaysOnInvalidStep(t *testing.T) {
	engine := New()
	if engine.Advance() {
		t.Fatal("expected advance to fail without gender")
	}
	if got := engine.Record().CurrentStep; got != 1 {
		t.Fatalf("expected to stay on step 1, got %d", got)
	}

	if err := engine.UpdateField("gender", "male"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if !engine.Advance() {
		t.Fatal("expected advance to succeed")
	}
	if got := engine.Record().CurrentStep; got != 2 {
		t.Fatalf("expected step 2, got %d", got)
	}

	engine.Back()
	if got := engine.Record().CurrentStep; got != 1 {
		t.Fatalf("expected step 1 after back, got %d", got)
	}
}

func TestFirstInvalidStepFindsMissingPrerequisite(t *testing.T) {
	engine := New()
	if err := engine.UpdateMultipleFields(map[string]any{
		"gender":      "male",
		"dateOfBirth": "1990-01-01",
		"height":      180,
	}); err != nil {
		t.Fatalf("UpdateMultipleFields: %v", err)
	}

	step, missing := engine.FirstInvalidStep(6)
	if !missing || step != 4 {
		t.Fatalf("expected weight step 4 missing, got %d (%v)", step, missing)
	}
	if _, missing := engine.FirstInvalidStep(4); missing {
		t.Fatal("expected no missing prerequisite before step 4")
	}
}

func TestSetWeightConvertsToKilograms(t *testing.T) {
	engine := New()
	engine.SetWeight(200, WeightUnitLBS)
	if got := engine.Record().Weight; got < 90.718 || got > 90.719 {
		t.Fatalf("expected ~90.718 kg, got %v", got)
	}
	engine.SetHeight(70, HeightUnitIN)
	if got := engine.Record().Height; got < 177.79 || got > 177.81 {
		t.Fatalf("expected 177.8 cm, got %v", got)
	}
}

func TestUpdateFieldClampsCurrentStep(t *testing.T) {
	engine := New()

	if err := engine.UpdateField("currentStep", 999); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if got := engine.Record().CurrentStep; got != 26 {
		t.Fatalf("expected step clamped to 26, got %d", got)
	}
	if err := engine.UpdateMultipleFields(map[string]any{"currentStep": -3, "gender": "male"}); err != nil {
		t.Fatalf("UpdateMultipleFields: %v", err)
	}
	if got := engine.Record().CurrentStep; got != 1 {
		t.Fatalf("expected step clamped to 1, got %d", got)
	}
}

func TestUpdateFieldRejectsFutureDateOfBirth(t *testing.T) {
	engine := New(WithClock(fixedClock(2026, time.October, 19)))
	if err := engine.UpdateField("dateOfBirth", "1990-05-01"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	err := engine.UpdateField("dateOfBirth", "2030-01-01")
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Fatalf("expected ErrInvalidFieldValue, got %v", err)
	}
	record := engine.Record()
	if record.DateOfBirth != "1990-05-01" || record.Age != 36 {
		t.Fatalf("expected earlier birth date kept, got %q/%d", record.DateOfBirth, record.Age)
	}
}

func TestUpdateFieldRejectsFractionalWholeNumbers(t *testing.T) {
	engine := New()

	for name, value := range map[string]any{"trainingDays": 3.7, "currentStep": 2.5} {
		if err := engine.UpdateField(name, value); !errors.Is(err, ErrInvalidFieldValue) {
			t.Fatalf("%s=%v: expected ErrInvalidFieldValue, got %v", name, value, err)
		}
	}
	if got := engine.Record().TrainingDays; got != 0 {
		t.Fatalf("expected training days untouched, got %d", got)
	}

	if err := engine.UpdateField("trainingDays", 4.0); err != nil {
		t.Fatalf("expected whole float accepted, got %v", err)
	}
	if got := engine.Record().TrainingDays; got != 4 {
		t.Fatalf("expected 4 training days, got %d", got)
	}
}

func TestFinalPayloadUsesDisplayUnits(t *testing.T) {
	engine := New()
	engine.SetWeight(80, WeightUnitKG)
	engine.SetDesiredWeight(75, WeightUnitKG)
	engine.SetHeight(180, HeightUnitCM)

	payload := engine.FinalPayload()
	if payload.Weight != 80 || payload.DesiredWeight != 75 || payload.Height != 180 || payload.WeightUnit != "kg" {
		t.Fatalf("unexpected metric payload %+v", payload)
	}

	engine.ToggleUnitSystem()
	engine.SetWeight(200, WeightUnitLBS)
	engine.SetDesiredWeight(190, WeightUnitLBS)
	engine.SetHeight(70, HeightUnitIN)

	payload = engine.FinalPayload()
	if payload.WeightUnit != "lbs" || payload.UnitSystem != "imperial" {
		t.Fatalf("expected imperial units, got %q/%q", payload.WeightUnit, payload.UnitSystem)
	}
	if payload.Weight != 200 || payload.DesiredWeight != 190 || payload.Height != 70 {
		t.Fatalf("expected values in pounds and inches, got %v/%v/%v", payload.Weight, payload.DesiredWeight, payload.Height)
	}
	if got := engine.Record().Weight; got < 90.718 || got > 90.719 {
		t.Fatalf("expected record to stay in kilograms, got %v", got)
	}
}
