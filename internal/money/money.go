package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidAmount is returned when a monetary input is negative or not finite.
var ErrInvalidAmount = errors.New("money: invalid amount")

// Amount is a monetary value in minor units (cents). Arithmetic on Amount is
// exact; float64 appears only at the JSON and user-input boundary.
type Amount int64

// Round2 rounds a float to two decimal places, half away from zero.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Copysign(math.Floor(math.Abs(x)*100+0.5), x) / 100
}

// FromFloat converts a currency value expressed as a float into minor units.
// The value is rounded half away from zero to cent precision first. Negative
// and non-finite inputs are rejected.
func FromFloat(x float64) (Amount, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("non-finite value: %w", ErrInvalidAmount)
	}
	if x < 0 {
		return 0, fmt.Errorf("negative value: %w", ErrInvalidAmount)
	}
	return Amount(math.Round(Round2(x) * 100)), nil
}

// Float returns the amount as a currency value rounded to cent precision.
func (a Amount) Float() float64 {
	return float64(a) / 100
}

// String renders the amount with exactly two decimal digits, e.g. "100.00".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimal places.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number (or numeric string) and rounds it to
// cent precision.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		parsed, err := FromFloat(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", v, ErrInvalidAmount)
		}
		parsed, err := FromFloat(f)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return fmt.Errorf("unexpected amount type %T: %w", raw, ErrInvalidAmount)
	}
}
