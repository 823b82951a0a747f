package nodeconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Temperature units accepted by thermostat-capable sensors.
const (
	UnitsCelsius    = "celsius"
	UnitsFahrenheit = "fahrenheit"
	UnitsKelvin     = "kelvin"
)

// ValidUnits reports whether units names a supported temperature scale.
func ValidUnits(units string) bool {
	switch units {
	case UnitsCelsius, UnitsFahrenheit, UnitsKelvin:
		return true
	default:
		return false
	}
}

// ConvertTemperature converts value between temperature scales, rounded to
// one decimal place.
func ConvertTemperature(value float64, from, to string) (float64, error) {
	if !ValidUnits(from) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, from)
	}
	if !ValidUnits(to) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, to)
	}
	if from == to {
		return value, nil
	}

	var celsius float64
	switch from {
	case UnitsCelsius:
		celsius = value
	case UnitsFahrenheit:
		celsius = (value - 32) * 5 / 9
	case UnitsKelvin:
		celsius = value - 273.15
	}

	var out float64
	switch to {
	case UnitsCelsius:
		out = celsius
	case UnitsFahrenheit:
		out = celsius*9/5 + 32
	case UnitsKelvin:
		out = celsius + 273.15
	}
	return roundTenth(out), nil
}

// convertRuleValue converts a numeric rule stored either as a number or as
// a numeric string. Anything else (keywords such as "sunrise" or "enabled")
// is returned unchanged.
func convertRuleValue(v any, from, to string) (any, error) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, nil //nolint:nilerr // keyword rules are not converted
		}
		converted, err := ConvertTemperature(f, from, to)
		if err != nil {
			return nil, err
		}
		return strconv.FormatFloat(converted, 'f', -1, 64), nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return v, nil
		}
		return ConvertTemperature(f, from, to)
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// toFloat extracts a number from a decoded JSON value.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
