package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeterReading(t *testing.T) {
	cases := []struct {
		in      string
		want    MeterReading
		wantErr bool
	}{
		{in: "102.5", want: 1025},
		{in: "102", want: 1020},
		{in: "0.1", want: 1},
		{in: "0", want: 0},
		{in: " 48.7 ", want: 487},
		{in: "102.55", wantErr: true},
		{in: "-1.0", wantErr: true},
		{in: "+1.0", wantErr: true},
		{in: ".5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "10.x", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMeterReading(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidMeterReading, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestMeterReadingString(t *testing.T) {
	assert.Equal(t, "102.5", MeterReading(1025).String())
	assert.Equal(t, "102.0", MeterReading(1020).String())
	assert.Equal(t, "0.1", MeterReading(1).String())
	assert.Equal(t, "0.0", MeterReading(0).String())
}

func TestMeterReadingJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(MeterReading(1025))
	require.NoError(t, err)
	assert.Equal(t, `"102.5"`, string(data))

	var fromString MeterReading
	require.NoError(t, json.Unmarshal([]byte(`"48.7"`), &fromString))
	assert.Equal(t, MeterReading(487), fromString)

	var fromNumber MeterReading
	require.NoError(t, json.Unmarshal([]byte(`48.7`), &fromNumber))
	assert.Equal(t, MeterReading(487), fromNumber)

	var bad MeterReading
	assert.Error(t, json.Unmarshal([]byte(`"48.75"`), &bad))
}

func TestCostCentsIsExact(t *testing.T) {
	// 2.5h at $150.00/h is exactly $375.00, with no float drift.
	assert.Equal(t, int64(37500), CostCents(25, 15000))
	// 0.1h at $150.00/h.
	assert.Equal(t, int64(1500), CostCents(1, 15000))
	// Half-up rounding on a rate that does not divide evenly: 0.1h at
	// $99.99/h is 999.9 cents, rounded to 1000.
	assert.Equal(t, int64(1000), CostCents(1, 9999))
	// 0.3h at $33.35/h is 1000.5 cents, rounded up.
	assert.Equal(t, int64(1001), CostCents(3, 3335))

	assert.Equal(t, int64(0), CostCents(0, 15000))
	assert.Equal(t, int64(0), CostCents(-1, 15000))
	assert.Equal(t, int64(0), CostCents(10, 0))
}

func TestParseCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "150.00", want: 15000},
		{in: "150", want: 15000},
		{in: "150.5", want: 15050},
		{in: "0.05", want: 5},
		{in: "150.005", wantErr: true},
		{in: "-150.00", wantErr: true},
		{in: "+150.00", wantErr: true},
		{in: ".50", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseCents(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidHourlyRate, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "375.00", FormatCents(37500))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "-12.34", FormatCents(-1234))
}
