package onboarding

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuleKind string

const (
	RuleRequired   RuleKind = "required"
	RulePositive   RuleKind = "positive"
	RuleNonEmpty   RuleKind = "non_empty"
	RuleRange      RuleKind = "range"
	RuleWeightGoal RuleKind = "weight_goal"
	RuleOptional   RuleKind = "optional"
)

type StepRule struct {
	Step  int      `yaml:"step" json:"step"`
	Field string   `yaml:"field" json:"field"`
	Kind  RuleKind `yaml:"rule" json:"rule"`
	Min   float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Max   float64  `yaml:"max,omitempty" json:"max,omitempty"`
	// Increment, when set, restricts range values to Min + k*Increment.
	Increment float64 `yaml:"increment,omitempty" json:"increment,omitempty"`
}

// StepTable maps wizard steps to the fields they collect. A step may carry
// several rules; it is valid when all of them hold. Steps without a rule
// are always valid.
type StepTable struct {
	Rules []StepRule `yaml:"steps" json:"steps"`
}

func DefaultStepTable() StepTable {
	return StepTable{Rules: []StepRule{
		{Step: 1, Field: "gender", Kind: RuleRequired},
		{Step: 2, Field: "dateOfBirth", Kind: RuleRequired},
		{Step: 3, Field: "height", Kind: RulePositive},
		{Step: 4, Field: "weight", Kind: RulePositive},
		{Step: 5, Field: "weightGoal", Kind: RuleRequired},
		{Step: 6, Field: "desiredWeight", Kind: RuleWeightGoal},
		{Step: 7, Field: "weeklyWeightLossGoal", Kind: RuleRange, Min: 0.5, Max: 2.0, Increment: 0.1},
		{Step: 8, Field: "trainingDays", Kind: RuleRange, Min: 1, Max: 7},
		{Step: 9, Field: "trainMoreThanOnce", Kind: RuleOptional},
		{Step: 10, Field: "workoutLocation", Kind: RuleRequired},
		{Step: 11, Field: "selectedEquipments", Kind: RuleNonEmpty},
		{Step: 12, Field: "dietType", Kind: RuleRequired},
		{Step: 13, Field: "cookingLevel", Kind: RuleRequired},
		{Step: 14, Field: "cheatMealFoodItems", Kind: RuleOptional},
		{Step: 15, Field: "allergicFoodItems", Kind: RuleOptional},
		{Step: 16, Field: "dislikedFoodItems", Kind: RuleOptional},
		{Step: 17, Field: "injuries", Kind: RuleOptional},
		{Step: 18, Field: "accomplish", Kind: RuleNonEmpty},
		{Step: 19, Field: "budget", Kind: RuleRequired},
		{Step: 20, Field: "occupation", Kind: RuleRequired},
		{Step: 21, Field: "workShift", Kind: RuleRequired},
		{Step: 22, Field: "workActivityLevel", Kind: RuleRequired},
		{Step: 23, Field: "selectedCountry", Kind: RuleRequired},
		{Step: 24, Field: "selectedCity", Kind: RuleRequired},
		{Step: 25, Kind: RuleOptional},
		{Step: 26, Kind: RuleOptional},
	}}
}

// LoadStepTable reads a YAML step table and checks it against the record
// layout.
func LoadStepTable(path string) (StepTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StepTable{}, fmt.Errorf("read step table: %w", err)
	}
	return ParseStepTable(raw)
}

func ParseStepTable(raw []byte) (StepTable, error) {
	var table StepTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return StepTable{}, fmt.Errorf("decode step table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return StepTable{}, err
	}
	return table, nil
}

func (t StepTable) Validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("step table has no steps")
	}
	for i, rule := range t.Rules {
		if rule.Step < 1 {
			return fmt.Errorf("step table entry %d: step must be 1 or greater", i)
		}
		switch rule.Kind {
		case RuleOptional, RuleWeightGoal:
		case RuleRequired, RulePositive, RuleNonEmpty, RuleRange:
			if _, ok := lookupField(reflect.ValueOf(Record{}), rule.Field); !ok {
				return fmt.Errorf("step %d: unknown field %q", rule.Step, rule.Field)
			}
			if rule.Kind == RuleRange && rule.Min > rule.Max {
				return fmt.Errorf("step %d: min is greater than max", rule.Step)
			}
			if rule.Increment < 0 {
				return fmt.Errorf("step %d: increment must not be negative", rule.Step)
			}
		default:
			return fmt.Errorf("step %d: unknown rule %q", rule.Step, rule.Kind)
		}
	}
	return nil
}

// TotalSteps is the highest step number in the table.
func (t StepTable) TotalSteps() int {
	total := 0
	for _, rule := range t.Rules {
		if rule.Step > total {
			total = rule.Step
		}
	}
	return total
}

func (t StepTable) RulesFor(step int) []StepRule {
	var rules []StepRule
	for _, rule := range t.Rules {
		if rule.Step == step {
			rules = append(rules, rule)
		}
	}
	return rules
}

// StepForField returns the lowest step that collects field.
func (t StepTable) StepForField(field string) (int, bool) {
	steps := make([]int, 0, 1)
	for _, rule := range t.Rules {
		if rule.Field == field {
			steps = append(steps, rule.Step)
		}
	}
	if len(steps) == 0 {
		return 0, false
	}
	sort.Ints(steps)
	return steps[0], true
}

func (t StepTable) valid(record Record, step int) bool {
	for _, rule := range t.RulesFor(step) {
		if !rule.holds(record) {
			return false
		}
	}
	return true
}

func (rule StepRule) holds(record Record) bool {
	switch rule.Kind {
	case RuleOptional:
		return true
	case RuleWeightGoal:
		return DesiredWeightConsistent(record.Weight, record.DesiredWeight, record.WeightGoal, record.UnitSystem)
	}

	value, ok := lookupField(reflect.ValueOf(record), rule.Field)
	if !ok {
		return false
	}
	switch rule.Kind {
	case RuleRequired:
		if value.Kind() == reflect.String {
			return strings.TrimSpace(value.String()) != ""
		}
		return !value.IsZero()
	case RulePositive:
		number, ok := numeric(value)
		return ok && number > 0
	case RuleNonEmpty:
		if value.Kind() != reflect.Slice {
			return false
		}
		return value.Len() > 0
	case RuleRange:
		number, ok := numeric(value)
		if !ok || number < rule.Min || number > rule.Max {
			return false
		}
		return rule.onIncrement(number)
	default:
		return false
	}
}

func (rule StepRule) onIncrement(number float64) bool {
	if rule.Increment <= 0 {
		return true
	}
	steps := (number - rule.Min) / rule.Increment
	return math.Abs(steps-math.Round(steps)) <= 1e-6
}

// DesiredWeightConsistent checks the desired weight against the weight goal.
// Both weights are canonical kilograms; the comparison runs in the display
// unit of system so the ten-unit window follows what the user sees.
func DesiredWeightConsistent(weightKG, desiredKG float64, goal WeightGoal, system UnitSystem) bool {
	if weightKG <= 0 || desiredKG <= 0 {
		return false
	}
	unit := system.WeightUnit()
	current := weightIn(weightKG, unit)
	desired := weightIn(desiredKG, unit)

	switch goal {
	case WeightGoalLose:
		return desired < current && desired >= current-10
	case WeightGoalGain:
		return desired > current && desired <= current+10
	case WeightGoalMaintain:
		return math.Abs(desired-current) <= 0.1+1e-9
	default:
		return false
	}
}

func numeric(value reflect.Value) (float64, bool) {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(value.Int()), true
	case reflect.Float32, reflect.Float64:
		return value.Float(), true
	default:
		return 0, false
	}
}

// lookupField resolves a json field path such as "user.email".
func lookupField(value reflect.Value, path string) (reflect.Value, bool) {
	if path == "" {
		return reflect.Value{}, false
	}
	head, rest, nested := strings.Cut(path, ".")
	typ := value.Type()
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name != head {
			continue
		}
		field := value.Field(i)
		if !nested {
			return field, true
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		return lookupField(field, rest)
	}
	return reflect.Value{}, false
}
