package onboarding

import "math"

const (
	kgPerPound = 0.453592
	cmPerInch  = 2.54
)

func KGToLbs(kg float64) float64 {
	return kg / kgPerPound
}

func LbsToKG(lbs float64) float64 {
	return lbs * kgPerPound
}

func CMToInches(cm float64) float64 {
	return cm / cmPerInch
}

func InchesToCM(in float64) float64 {
	return in * cmPerInch
}

func (s UnitSystem) WeightUnit() WeightUnit {
	if s == UnitSystemImperial {
		return WeightUnitLBS
	}
	return WeightUnitKG
}

func (s UnitSystem) HeightUnit() HeightUnit {
	if s == UnitSystemImperial {
		return HeightUnitIN
	}
	return HeightUnitCM
}

func (s UnitSystem) Toggle() UnitSystem {
	if s == UnitSystemImperial {
		return UnitSystemMetric
	}
	return UnitSystemImperial
}

func (u WeightUnit) System() UnitSystem {
	if u == WeightUnitLBS {
		return UnitSystemImperial
	}
	return UnitSystemMetric
}

// weightIn converts a canonical kilogram value into unit.
func weightIn(kg float64, unit WeightUnit) float64 {
	if unit == WeightUnitLBS {
		return roundTo(KGToLbs(kg), 3)
	}
	return kg
}

// weightFrom converts a value expressed in unit into kilograms.
func weightFrom(value float64, unit WeightUnit) float64 {
	if unit == WeightUnitLBS {
		return LbsToKG(value)
	}
	return value
}

func heightIn(cm float64, unit HeightUnit) float64 {
	if unit == HeightUnitIN {
		return roundTo(CMToInches(cm), 3)
	}
	return cm
}

func heightFrom(value float64, unit HeightUnit) float64 {
	if unit == HeightUnitIN {
		return InchesToCM(value)
	}
	return value
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
