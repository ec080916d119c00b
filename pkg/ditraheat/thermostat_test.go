package ditraheat

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("", "pw", "SN")
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = NewClient("me@example.com", "", "SN")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = NewClient("me@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrEmptySerialNumber)
}

func TestNewClient_InvalidOption(t *testing.T) {
	c, err := NewClient("me@example.com", "pw", "SN", WithComfortDuration(0))
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("me@example.com", "pw", "SN")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, ModeSchedule, c.RegulationMode())
	assert.Equal(t, 2*time.Hour, c.comfortDuration)
	assert.Equal(t, "SN", c.SerialNumber())
	assert.Zero(t, c.httpClient.Timeout)
	assert.Empty(t, c.session.current())
}

func TestNewClient_TimeoutDoesNotMutateCallerClient(t *testing.T) {
	f := newFakeService(t)
	hc := f.server.Client()

	c, err := NewClient("me@example.com", "pw", "SN", WithHTTPClient(hc), WithTimeout(3*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.Zero(t, hc.Timeout)
}

func TestTemperature_ConvertsHundredths(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)
	ctx := context.Background()

	temp, err := c.Temperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21.5, temp)

	target, err := c.TargetTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, 22.0, target)

	q := f.lastQuery()
	assert.Equal(t, "SN123", q.Get(ParamSerialNumber))
	assert.Equal(t, "session-1", q.Get(ParamSessionID))
}

func TestState_SingleRead(t *testing.T) {
	f := newFakeService(t)
	f.set(func(f *fakeService) {
		f.thermostat = map[string]any{"Temperature": 1875, "SetPointTemp": 505}
	})
	c := f.client(t)

	st, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ThermostatState{Temperature: 18.75, TargetTemperature: 5.05}, st)
}

func TestState_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"no temperature", map[string]any{"SetPointTemp": 2000}},
		{"no setpoint", map[string]any{"Temperature": 2000}},
		{"empty", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			f.set(func(f *fakeService) { f.thermostat = tt.body })
			c := f.client(t)

			_, err := c.Temperature(context.Background())
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestTemperatureUnit(t *testing.T) {
	tests := []struct {
		name    string
		account map[string]any
		want    TemperatureUnit
	}{
		{"celsius", map[string]any{"TempUnitIsCelsius": true}, Celsius},
		{"fahrenheit", map[string]any{"TempUnitIsCelsius": false}, Fahrenheit},
		{"missing defaults to fahrenheit", map[string]any{"Email": "user@example.com"}, Fahrenheit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			f.set(func(f *fakeService) { f.account = tt.account })
			c := f.client(t)

			unit, err := c.TemperatureUnit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, unit)
		})
	}
}

func TestTemperatureUnit_OmitsSerialNumber(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)

	_, err := c.TemperatureUnit(context.Background())
	require.NoError(t, err)

	q := f.lastQuery()
	assert.Equal(t, "session-1", q.Get(ParamSessionID))
	assert.False(t, q.Has(ParamSerialNumber))
}

func TestSetTemperatureUnit(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)
	ctx := context.Background()

	require.NoError(t, c.SetTemperatureUnit(ctx, Celsius))
	require.NoError(t, c.SetTemperatureUnit(ctx, Fahrenheit))

	var puts []map[string]any
	f.set(func(f *fakeService) { puts = append(puts, f.accountPuts...) })
	require.Len(t, puts, 2)
	assert.Equal(t, map[string]any{"TempUnitIsCelsius": true}, puts[0])
	assert.Equal(t, map[string]any{"TempUnitIsCelsius": false}, puts[1])
}

func TestSetTargetTemperature_Permanent(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t, WithRegulationMode(ModePermanent))

	require.NoError(t, c.SetTargetTemperature(context.Background(), 21.5))

	assert.Equal(t, map[string]any{
		"ManualTemperature": float64(2150),
		"RegulationMode":    float64(3),
		"VacationEnabled":   false,
	}, f.lastWrite())
	assert.Equal(t, "SN123", f.lastQuery().Get(ParamSerialNumber))
}

func TestSetTargetTemperature_Temporary(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t, WithRegulationMode(ModeTemporary))
	c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	require.NoError(t, c.SetTargetTemperature(context.Background(), 23.25))

	assert.Equal(t, map[string]any{
		"ComfortTemperature": float64(2325),
		"ComfortEndTime":     "2024-03-01T14:30:00.000Z",
		"RegulationMode":     float64(2),
		"VacationEnabled":    false,
	}, f.lastWrite())
}

func TestSetTargetTemperature_TemporaryCustomDuration(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t, WithRegulationMode(ModeTemporary), WithComfortDuration(5*time.Hour))
	c.now = func() time.Time { return time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC) }

	require.NoError(t, c.SetTargetTemperature(context.Background(), 20))
	assert.Equal(t, "2024-03-02T03:00:00.000Z", f.lastWrite()["ComfortEndTime"])
}

func TestSetTargetTemperature_ScheduleIgnoresValue(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)

	require.NoError(t, c.SetTargetTemperature(context.Background(), 30))

	assert.Equal(t, map[string]any{
		"RegulationMode":  float64(1),
		"VacationEnabled": false,
	}, f.lastWrite())
}

func TestSetTargetTemperature_AwayFallsBackToSchedule(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t, WithRegulationMode(ModeAway))

	require.NoError(t, c.SetTargetTemperature(context.Background(), 15))
	assert.Equal(t, float64(1), f.lastWrite()["RegulationMode"])
	assert.NotContains(t, f.lastWrite(), "ManualTemperature")
}

func TestSetComfortTemperature_ExplicitEndTime(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)
	end := time.Date(2024, 12, 24, 18, 0, 0, 0, time.FixedZone("EST", -5*3600))

	require.NoError(t, c.SetComfortTemperature(context.Background(), 22, end))

	w := f.lastWrite()
	assert.Equal(t, "2024-12-24T23:00:00.000Z", w["ComfortEndTime"])
	assert.Equal(t, float64(2200), w["ComfortTemperature"])
}

func TestSetManualAndSchedule(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t, WithRegulationMode(ModeTemporary))
	ctx := context.Background()

	require.NoError(t, c.SetManualTemperature(ctx, 19.994))
	assert.Equal(t, float64(1999), f.lastWrite()["ManualTemperature"])
	assert.Equal(t, float64(3), f.lastWrite()["RegulationMode"])

	require.NoError(t, c.SetScheduleMode(ctx))
	assert.Equal(t, map[string]any{"RegulationMode": float64(1), "VacationEnabled": false}, f.lastWrite())
}

func TestSetTargetTemperature_RejectsUnsendableValues(t *testing.T) {
	for _, mode := range []RegulationMode{ModePermanent, ModeTemporary} {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300} {
			f := newFakeService(t)
			c := f.client(t, WithRegulationMode(mode))

			err := c.SetTargetTemperature(context.Background(), v)
			assert.ErrorIs(t, err, ErrInvalidTemperature, "%s %v", mode, v)
			assert.Nil(t, f.lastWrite())
			assert.Equal(t, 0, f.signInCount())
		}
	}
}

func TestSetTargetTemperature_ScheduleSkipsValueCheck(t *testing.T) {
	f := newFakeService(t)
	c := f.client(t)

	require.NoError(t, c.SetTargetTemperature(context.Background(), math.NaN()))
	assert.Equal(t, float64(1), f.lastWrite()["RegulationMode"])
}
