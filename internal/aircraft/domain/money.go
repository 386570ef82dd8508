package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCents parses a decimal currency string such as "150.00" into cents.
// At most two fractional digits are accepted; negatives are rejected.
func ParseCents(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return 0, ErrInvalidHourlyRate
	}

	whole := value
	frac := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" || len(frac) > 2 {
		return 0, ErrInvalidHourlyRate
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidHourlyRate
	}

	cents := int64(0)
	if frac != "" {
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidHourlyRate
		}
		if len(frac) == 1 {
			cents *= 10
		}
	}

	return dollars*100 + cents, nil
}

// FormatCents renders cents as a decimal string, e.g. 37500 -> "375.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
