package domain

import "fmt"

const kgToLb = 2.2046226218

// WeightUnit is the unit a weight is reported in.
type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lb"
)

// ParseWeightUnit validates s. An empty string means kilograms.
func ParseWeightUnit(s string) (WeightUnit, error) {
	switch u := WeightUnit(s); u {
	case "":
		return Kilograms, nil
	case Kilograms, Pounds:
		return u, nil
	}
	return "", fmt.Errorf("weight unit must be %q or %q", Kilograms, Pounds)
}

// ConvertWeight converts a weight value between kilograms and pounds.
// Returns v unchanged if from == to.
func ConvertWeight(v float64, from, to WeightUnit) float64 {
	switch {
	case from == to:
		return v
	case from == Kilograms && to == Pounds:
		return v * kgToLb
	case from == Pounds && to == Kilograms:
		return v / kgToLb
	}
	return v
}
