package ditraheat

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// State reads the current and target temperature in one request.
func (c *Client) State(ctx context.Context) (ThermostatState, error) {
	var resp thermostatResponse
	if err := c.doAuthed(ctx, http.MethodGet, PathThermostat, c.thermostatQuery(), nil, &resp); err != nil {
		return ThermostatState{}, err
	}

	if resp.Temperature == nil {
		return ThermostatState{}, fmt.Errorf("%w: missing Temperature", ErrMalformedResponse)
	}
	if resp.SetPointTemp == nil {
		return ThermostatState{}, fmt.Errorf("%w: missing SetPointTemp", ErrMalformedResponse)
	}

	return ThermostatState{
		Temperature:       FromWire(*resp.Temperature),
		TargetTemperature: FromWire(*resp.SetPointTemp),
	}, nil
}

// Temperature returns the measured temperature in degrees.
func (c *Client) Temperature(ctx context.Context) (float64, error) {
	st, err := c.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("get temperature: %w", err)
	}
	return st.Temperature, nil
}

// TargetTemperature returns the active setpoint in degrees.
func (c *Client) TargetTemperature(ctx context.Context) (float64, error) {
	st, err := c.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("get target temperature: %w", err)
	}
	return st.TargetTemperature, nil
}

// TemperatureUnit returns the account display unit. A response without the
// unit flag is treated as Fahrenheit.
func (c *Client) TemperatureUnit(ctx context.Context) (TemperatureUnit, error) {
	var resp accountSettings
	if err := c.doAuthed(ctx, http.MethodGet, PathAccount, nil, nil, &resp); err != nil {
		return Fahrenheit, fmt.Errorf("get temperature unit: %w", err)
	}

	if resp.TempUnitIsCelsius == nil {
		if c.logger != nil {
			c.logger.Warn("TempUnitIsCelsius missing from response, defaulting to fahrenheit")
		}
		return Fahrenheit, nil
	}
	if *resp.TempUnitIsCelsius {
		return Celsius, nil
	}
	return Fahrenheit, nil
}

// SetTemperatureUnit changes the account display unit.
func (c *Client) SetTemperatureUnit(ctx context.Context, unit TemperatureUnit) error {
	isCelsius := unit == Celsius
	body := accountSettings{TempUnitIsCelsius: &isCelsius}
	if err := c.doAuthed(ctx, http.MethodPut, PathAccount, nil, body, nil); err != nil {
		return fmt.Errorf("set temperature unit: %w", err)
	}
	return nil
}

// SetTargetTemperature applies degrees using the configured regulation mode.
// In schedule mode the value is ignored and the schedule is restored.
func (c *Client) SetTargetTemperature(ctx context.Context, degrees float64) error {
	return c.SetTargetTemperatureMode(ctx, degrees, c.mode, time.Time{})
}

// SetTargetTemperatureMode applies degrees using mode. endTime is only used
// by ModeTemporary; a zero endTime means now plus the comfort duration.
// degrees is checked only by the modes that send it.
func (c *Client) SetTargetTemperatureMode(ctx context.Context, degrees float64, mode RegulationMode, endTime time.Time) error {
	if mode == ModePermanent || mode == ModeTemporary {
		if err := CheckTemperature(degrees); err != nil {
			return fmt.Errorf("set target temperature (%s): %w", mode, err)
		}
	}
	if mode == ModeTemporary && endTime.IsZero() {
		endTime = c.now().Add(c.comfortDuration)
	}

	payload := buildWrite(mode, degrees, endTime)
	if c.logger != nil {
		c.logger.Debug("setting target temperature", "mode", mode, "sent_mode", payload.RegulationMode, "degrees", degrees)
	}

	if err := c.doAuthed(ctx, http.MethodPost, PathThermostat, c.thermostatQuery(), payload, nil); err != nil {
		return fmt.Errorf("set target temperature (%s): %w", payload.RegulationMode, err)
	}
	return nil
}

// SetScheduleMode returns the thermostat to its stored schedule.
func (c *Client) SetScheduleMode(ctx context.Context) error {
	return c.SetTargetTemperatureMode(ctx, 0, ModeSchedule, time.Time{})
}

// SetComfortTemperature holds degrees until endTime, then resumes the schedule.
func (c *Client) SetComfortTemperature(ctx context.Context, degrees float64, endTime time.Time) error {
	return c.SetTargetTemperatureMode(ctx, degrees, ModeTemporary, endTime)
}

// SetManualTemperature holds degrees until changed.
func (c *Client) SetManualTemperature(ctx context.Context, degrees float64) error {
	return c.SetTargetTemperatureMode(ctx, degrees, ModePermanent, time.Time{})
}
