package txbuilder

import "math"

// DefaultFeeMultiplier pads the calculated minimum fee; the draft body used
// for the calculation carries no witnesses and a zero fee field.
const DefaultFeeMultiplier = 2.0

// ApplyMultiplier scales fee by mult, rounding up. A multiplier below 1 is
// treated as 1 so the result never drops under the minimum.
func ApplyMultiplier(fee int64, mult float64) int64 {
	if mult < 1 || math.IsNaN(mult) {
		mult = 1
	}
	return int64(math.Ceil(float64(fee) * mult))
}
