// Package onboarding holds the wizard state engine: the record of collected
// answers, the operations that mutate it, per-step validity rules and the
// projection of the record into the user-info payload.
package onboarding

type UnitSystem string

const (
	UnitSystemMetric   UnitSystem = "metric"
	UnitSystemImperial UnitSystem = "imperial"
)

type WeightUnit string

const (
	WeightUnitKG  WeightUnit = "kg"
	WeightUnitLBS WeightUnit = "lbs"
)

type HeightUnit string

const (
	HeightUnitCM HeightUnit = "cm"
	HeightUnitIN HeightUnit = "in"
)

type WeightGoal string

const (
	WeightGoalLose     WeightGoal = "LOSE_WEIGHT"
	WeightGoalGain     WeightGoal = "GAIN_WEIGHT"
	WeightGoalMaintain WeightGoal = "MAINTAIN"
)

// DateLayout is the storage format of Record.DateOfBirth.
const DateLayout = "2006-01-02"

type User struct {
	Email      string `json:"email" mapstructure:"email"`
	Username   string `json:"username" mapstructure:"username"`
	Platform   string `json:"platform" mapstructure:"platform"`
	UserInfoID string `json:"userInfoId" mapstructure:"userInfoId"`
}

// Record is the full set of wizard answers. Height is stored in centimetres
// and both weights in kilograms whatever the display unit system is.
type Record struct {
	CurrentStep int `json:"currentStep" mapstructure:"currentStep"`
	TotalSteps  int `json:"totalSteps" mapstructure:"totalSteps"`

	User            User `json:"user" mapstructure:"user"`
	IsAuthenticated bool `json:"isAuthenticated" mapstructure:"isAuthenticated"`
	NeedsOnboarding bool `json:"needsOnboarding" mapstructure:"needsOnboarding"`

	Gender      string     `json:"gender" mapstructure:"gender"`
	DateOfBirth string     `json:"dateOfBirth" mapstructure:"dateOfBirth"`
	Age         int        `json:"age" mapstructure:"age"`
	Height      float64    `json:"height" mapstructure:"height"`
	Weight      float64    `json:"weight" mapstructure:"weight"`
	WeightUnit  WeightUnit `json:"weightUnit" mapstructure:"weightUnit"`
	UnitSystem  UnitSystem `json:"unitSystem" mapstructure:"unitSystem"`

	WeightGoal           WeightGoal `json:"weightGoal" mapstructure:"weightGoal"`
	DesiredWeight        float64    `json:"desiredWeight" mapstructure:"desiredWeight"`
	WeeklyWeightLossGoal float64    `json:"weeklyWeightLossGoal" mapstructure:"weeklyWeightLossGoal"`

	TrainingDays       int      `json:"trainingDays" mapstructure:"trainingDays"`
	TrainMoreThanOnce  bool     `json:"trainMoreThanOnce" mapstructure:"trainMoreThanOnce"`
	WorkoutLocation    string   `json:"workoutLocation" mapstructure:"workoutLocation"`
	SelectedEquipments []string `json:"selectedEquipments" mapstructure:"selectedEquipments"`
	DietType           string   `json:"dietType" mapstructure:"dietType"`
	CookingLevel       string   `json:"cookingLevel" mapstructure:"cookingLevel"`
	CheatMealFoodItems []string `json:"cheatMealFoodItems" mapstructure:"cheatMealFoodItems"`
	AllergicFoodItems  []string `json:"allergicFoodItems" mapstructure:"allergicFoodItems"`
	DislikedFoodItems  []string `json:"dislikedFoodItems" mapstructure:"dislikedFoodItems"`
	Injuries           []string `json:"injuries" mapstructure:"injuries"`
	Accomplish         []string `json:"accomplish" mapstructure:"accomplish"`
	Budget             string   `json:"budget" mapstructure:"budget"`
	Occupation         string   `json:"occupation" mapstructure:"occupation"`
	WorkShift          string   `json:"workShift" mapstructure:"workShift"`
	WorkActivityLevel  string   `json:"workActivityLevel" mapstructure:"workActivityLevel"`
	SelectedCountry    string   `json:"selectedCountry" mapstructure:"selectedCountry"`
	SelectedCity       string   `json:"selectedCity" mapstructure:"selectedCity"`

	Loading bool   `json:"loading" mapstructure:"loading"`
	Error   string `json:"error" mapstructure:"error"`
}

// Defaults returns a fresh default record for a wizard of totalSteps steps.
func Defaults(totalSteps int) Record {
	return Record{
		CurrentStep:          1,
		TotalSteps:           totalSteps,
		NeedsOnboarding:      true,
		WeightUnit:           WeightUnitKG,
		UnitSystem:           UnitSystemMetric,
		WeeklyWeightLossGoal: 0.5,
		SelectedEquipments:   []string{},
		CheatMealFoodItems:   []string{},
		AllergicFoodItems:    []string{},
		DislikedFoodItems:    []string{},
		Injuries:             []string{},
		Accomplish:           []string{},
	}
}

func (r *Record) collection(name string) *[]string {
	switch name {
	case "selectedEquipments":
		return &r.SelectedEquipments
	case "cheatMealFoodItems":
		return &r.CheatMealFoodItems
	case "allergicFoodItems":
		return &r.AllergicFoodItems
	case "dislikedFoodItems":
		return &r.DislikedFoodItems
	case "injuries":
		return &r.Injuries
	case "accomplish":
		return &r.Accomplish
	default:
		return nil
	}
}

// dedupe keeps the first occurrence of every value. The input slice is
// returned untouched when it holds no duplicates.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	for i, value := range values {
		if _, ok := seen[value]; ok {
			out := make([]string, i, len(values))
			copy(out, values[:i])
			for _, rest := range values[i+1:] {
				if _, dup := seen[rest]; dup {
					continue
				}
				seen[rest] = struct{}{}
				out = append(out, rest)
			}
			return out
		}
		seen[value] = struct{}{}
	}
	return values
}
