package ditraheat

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWire_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 2150, ToWire(21.5))
	assert.Equal(t, 13, ToWire(0.125))
	assert.Equal(t, -13, ToWire(-0.125))
	assert.Equal(t, 2000, ToWire(19.999))
	assert.Equal(t, 0, ToWire(0))
}

func TestFromWire(t *testing.T) {
	assert.Equal(t, 21.5, FromWire(2150))
	assert.Equal(t, -0.5, FromWire(-50))
}

func TestBuildWrite_Permanent(t *testing.T) {
	data, err := json.Marshal(buildWrite(ModePermanent, 21.5, time.Time{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ManualTemperature":2150,"RegulationMode":3,"VacationEnabled":false}`, string(data))
}

func TestBuildWrite_Temporary(t *testing.T) {
	end := time.Date(2024, 1, 2, 3, 4, 5, 600_000_000, time.UTC)

	data, err := json.Marshal(buildWrite(ModeTemporary, 18, end))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ComfortTemperature":1800,"ComfortEndTime":"2024-01-02T03:04:05.600Z","RegulationMode":2,"VacationEnabled":false}`, string(data))
}

func TestBuildWrite_ScheduleAndFallback(t *testing.T) {
	for _, mode := range []RegulationMode{ModeSchedule, ModeAway, RegulationMode(0), RegulationMode(42)} {
		data, err := json.Marshal(buildWrite(mode, 25, time.Now()))
		require.NoError(t, err)
		assert.JSONEq(t, `{"RegulationMode":1,"VacationEnabled":false}`, string(data), "mode %v", mode)
	}
}

func TestBuildWrite_ZeroDegreesKept(t *testing.T) {
	data, err := json.Marshal(buildWrite(ModePermanent, 0, time.Time{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ManualTemperature":0,"RegulationMode":3,"VacationEnabled":false}`, string(data))
}

func TestParseRegulationMode(t *testing.T) {
	tests := map[string]RegulationMode{
		"schedule":  ModeSchedule,
		"1":         ModeSchedule,
		"Temporary": ModeTemporary,
		"comfort":   ModeTemporary,
		"permanent": ModePermanent,
		" manual ":  ModePermanent,
		"3":         ModePermanent,
		"away":      ModeAway,
		"4":         ModeAway,
	}
	for in, want := range tests {
		got, err := ParseRegulationMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRegulationMode("boost")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestParseTemperatureUnit(t *testing.T) {
	u, err := ParseTemperatureUnit("Celsius")
	require.NoError(t, err)
	assert.Equal(t, Celsius, u)

	u, err = ParseTemperatureUnit("f")
	require.NoError(t, err)
	assert.Equal(t, Fahrenheit, u)

	_, err = ParseTemperatureUnit("kelvin")
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestRegulationMode_String(t *testing.T) {
	assert.Equal(t, "schedule", ModeSchedule.String())
	assert.Equal(t, "temporary", ModeTemporary.String())
	assert.Equal(t, "permanent", ModePermanent.String())
	assert.Equal(t, "away", ModeAway.String())
	assert.Equal(t, "mode(9)", RegulationMode(9).String())
}

func TestCheckTemperature(t *testing.T) {
	for _, v := range []float64{0, -10, 21.5, 40, 21474836.47} {
		assert.NoError(t, CheckTemperature(v), v)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300, -1e300, 21474836.48} {
		assert.ErrorIs(t, CheckTemperature(v), ErrInvalidTemperature, v)
	}
}
