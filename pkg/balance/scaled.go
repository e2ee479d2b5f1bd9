package balance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Display-unit conversion constants: 1 ADA = 1,000,000 lovelace.
const (
	Multiplier = 1_000_000
	Decimals   = 6
)

// ParseScaled converts a decimal display-unit amount such as "1.5" into base
// units. Digits beyond the sixth decimal place are truncated.
func ParseScaled(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digits(whole) {
		return 0, fmt.Errorf("%w: invalid whole part %q", ErrInvalidArgument, whole)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid whole part %q", ErrInvalidArgument, whole)
	}

	if !digits(frac) {
		return 0, fmt.Errorf("%w: invalid fractional part %q", ErrInvalidArgument, frac)
	}
	if len(frac) > Decimals {
		frac = frac[:Decimals]
	}
	var f int64
	if frac != "" {
		frac += strings.Repeat("0", Decimals-len(frac))
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid fractional part %q", ErrInvalidArgument, frac)
		}
	}

	if w > (math.MaxInt64-f)/Multiplier {
		return 0, fmt.Errorf("%w: amount %q too large", ErrInvalidArgument, s)
	}
	return w*Multiplier + f, nil
}

// digits reports whether s holds only ASCII digits. The empty string passes.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatScaled renders base units as a display-unit decimal string.
func FormatScaled(base int64) string {
	sign := ""
	u := uint64(base)
	if base < 0 {
		sign = "-"
		u = uint64(-(base + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%06d", sign, u/Multiplier, u%Multiplier)
}

// toBase converts a display-unit float to base units using its shortest
// decimal representation, so 4.35 becomes 4350000 rather than 4349999.
func toBase(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: amount %v", ErrInvalidArgument, amount)
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative, got %v", ErrInvalidArgument, amount)
	}
	return ParseScaled(strconv.FormatFloat(amount, 'f', -1, 64))
}

// AddScaled credits an amount given in display units.
func (b Balance) AddScaled(amount float64) (Balance, error) {
	qty, err := toBase(amount)
	if err != nil {
		return b, err
	}
	return b.AddBase(qty)
}

// RemoveScaled debits an amount given in display units.
func (b Balance) RemoveScaled(amount float64) (Balance, error) {
	qty, err := toBase(amount)
	if err != nil {
		return b, err
	}
	return b.RemoveBase(qty)
}

// SetScaled overwrites the base amount with an amount given in display units.
func (b Balance) SetScaled(amount float64) (Balance, error) {
	qty, err := toBase(amount)
	if err != nil {
		return b, err
	}
	return b.SetBase(qty)
}

// Scaled returns the base amount in display units.
func (b Balance) Scaled() float64 {
	return float64(b.base) / Multiplier
}
