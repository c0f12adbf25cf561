package onboarding

import "strings"

const payloadDateLayout = "2006-01-02T15:04:05.000Z"

// Payload is the user-info document sent once the wizard is complete.
// Weights and height are expressed in the units named by WeightUnit and
// UnitSystem (kg/cm for metric, lbs/in for imperial).
type Payload struct {
	UserID               string   `json:"userId"`
	Gender               string   `json:"gender"`
	DB                   string   `json:"db"`
	Age                  int      `json:"age"`
	Height               float64  `json:"height"`
	Weight               float64  `json:"weight"`
	WeightUnit           string   `json:"weightUnit"`
	UnitSystem           string   `json:"unitSystem"`
	WeightGoal           string   `json:"weightGoal"`
	DesiredWeight        float64  `json:"desiredWeight"`
	WeeklyWeightLossGoal float64  `json:"weeklyWeightLossGoal"`
	TrainingDay          int      `json:"trainingDay"`
	TrainMoreThanOnce    bool     `json:"trainMoreThanOnce"`
	WorkoutLocation      string   `json:"workoutLocation"`
	Equipments           []string `json:"equipments"`
	DietType             string   `json:"dietType"`
	CookingLevel         string   `json:"cookingLevel"`
	CheatMealFoodItems   []string `json:"cheatMealFoodItems"`
	AllergicFoodItems    []string `json:"allergicFoodItems"`
	DislikedFoodItems    []string `json:"dislikedFoodItems"`
	Injuries             []string `json:"injuries"`
	Accomplish           []string `json:"accomplish"`
	Budget               string   `json:"budget"`
	Occupation           string   `json:"occupation"`
	WorkShift            string   `json:"workShift"`
	WorkActivityLevel    string   `json:"workActivityLevel"`
	Country              string   `json:"country"`
	City                 string   `json:"city"`
}

// ProjectPayload maps a record onto the payload schema. Collections are
// shared with the record, not copied.
func ProjectPayload(r Record) Payload {
	weightUnit := r.UnitSystem.WeightUnit()
	return Payload{
		UserID:               r.User.UserInfoID,
		Gender:               strings.ToUpper(r.Gender),
		DB:                   isoDate(r.DateOfBirth),
		Age:                  r.Age,
		Height:               heightIn(r.Height, r.UnitSystem.HeightUnit()),
		Weight:               weightIn(r.Weight, weightUnit),
		WeightUnit:           string(weightUnit),
		UnitSystem:           string(r.UnitSystem),
		WeightGoal:           string(r.WeightGoal),
		DesiredWeight:        weightIn(r.DesiredWeight, weightUnit),
		WeeklyWeightLossGoal: r.WeeklyWeightLossGoal,
		TrainingDay:          r.TrainingDays,
		TrainMoreThanOnce:    r.TrainMoreThanOnce,
		WorkoutLocation:      strings.ToUpper(r.WorkoutLocation),
		Equipments:           r.SelectedEquipments,
		DietType:             r.DietType,
		CookingLevel:         r.CookingLevel,
		CheatMealFoodItems:   r.CheatMealFoodItems,
		AllergicFoodItems:    r.AllergicFoodItems,
		DislikedFoodItems:    r.DislikedFoodItems,
		Injuries:             r.Injuries,
		Accomplish:           r.Accomplish,
		Budget:               r.Budget,
		Occupation:           r.Occupation,
		WorkShift:            r.WorkShift,
		WorkActivityLevel:    r.WorkActivityLevel,
		Country:              r.SelectedCountry,
		City:                 r.SelectedCity,
	}
}

func isoDate(value string) string {
	if value == "" {
		return ""
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return ""
	}
	return parsed.UTC().Format(payloadDateLayout)
}
