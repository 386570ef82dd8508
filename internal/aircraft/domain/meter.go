package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMeterReading is returned for malformed or non-monotonic Hobbs and
// Tach values. Readings are never clamped or corrected.
var ErrInvalidMeterReading = errors.New("invalid_meter_reading")

// MeterReading is a Hobbs or Tach value in tenths of an hour, the resolution
// of a physical drum meter. Keeping readings integral makes elapsed-time and
// cost arithmetic exact across any number of flights.
type MeterReading int64

// ParseMeterReading parses a decimal string such as "102.5" into tenths.
// At most one fractional digit is accepted.
func ParseMeterReading(value string) (MeterReading, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return 0, ErrInvalidMeterReading
	}

	whole := value
	frac := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" || len(frac) > 1 {
		return 0, ErrInvalidMeterReading
	}

	hours, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidMeterReading
	}

	tenths := int64(0)
	if frac != "" {
		tenths, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidMeterReading
		}
	}

	return MeterReading(hours*10 + tenths), nil
}

// Tenths returns the raw value in tenths of an hour.
func (m MeterReading) Tenths() int64 { return int64(m) }

// String renders the reading as a decimal, e.g. "102.5".
func (m MeterReading) String() string {
	return fmt.Sprintf("%d.%d", int64(m)/10, int64(m)%10)
}

// MarshalJSON encodes the reading as a decimal string to keep API payloads
// free of binary floating point.
func (m MeterReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (m *MeterReading) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, perr := ParseMeterReading(asString)
		if perr != nil {
			return perr
		}
		*m = parsed
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return ErrInvalidMeterReading
	}
	parsed, err := ParseMeterReading(asNumber.String())
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// CostCents prices an elapsed meter delta at an hourly rate in cents,
// rounding half-up to the cent.
func CostCents(elapsedTenths int64, hourlyRateCents int64) int64 {
	if elapsedTenths <= 0 || hourlyRateCents <= 0 {
		return 0
	}
	return (elapsedTenths*hourlyRateCents + 5) / 10
}
