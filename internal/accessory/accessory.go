// Package accessory maps the standard thermostat capability set onto the
// DITRA-HEAT client. The floor heater only heats, so the heating/cooling
// state is fixed to Heat.
package accessory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

// Heating/cooling states and display units use the HomeKit numbering.
const (
	HeatingCoolingOff  = 0
	HeatingCoolingHeat = 1
	HeatingCoolingCool = 2
	HeatingCoolingAuto = 3

	DisplayUnitsCelsius    = 0
	DisplayUnitsFahrenheit = 1
)

// Controller is the subset of *ditraheat.Client the accessory needs.
type Controller interface {
	State(ctx context.Context) (ditraheat.ThermostatState, error)
	Temperature(ctx context.Context) (float64, error)
	TargetTemperature(ctx context.Context) (float64, error)
	SetTargetTemperature(ctx context.Context, degrees float64) error
	TemperatureUnit(ctx context.Context) (ditraheat.TemperatureUnit, error)
	SetTemperatureUnit(ctx context.Context, unit ditraheat.TemperatureUnit) error
}

var _ Controller = (*ditraheat.Client)(nil)

// State is a full capability snapshot.
type State struct {
	CurrentTemperature         float64 `json:"current_temperature"`
	TargetTemperature          float64 `json:"target_temperature"`
	TemperatureDisplayUnits    int     `json:"temperature_display_units"`
	DisplayUnits               string  `json:"display_units"`
	CurrentHeatingCoolingState int     `json:"current_heating_cooling_state"`
	TargetHeatingCoolingState  int     `json:"target_heating_cooling_state"`
}

// Thermostat answers capability reads and writes.
type Thermostat struct {
	ctrl   Controller
	logger *slog.Logger
}

// New creates a Thermostat. logger may be nil.
func New(ctrl Controller, logger *slog.Logger) *Thermostat {
	return &Thermostat{ctrl: ctrl, logger: logger}
}

func (t *Thermostat) debug(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

// CurrentHeatingCoolingState is always Heat.
func (t *Thermostat) CurrentHeatingCoolingState() int {
	t.debug("GET CurrentHeatingCoolingState")
	return HeatingCoolingHeat
}

// TargetHeatingCoolingState is always Heat.
func (t *Thermostat) TargetHeatingCoolingState() int {
	t.debug("GET TargetHeatingCoolingState")
	return HeatingCoolingHeat
}

// SetTargetHeatingCoolingState accepts any state and stays in Heat.
func (t *Thermostat) SetTargetHeatingCoolingState(state int) int {
	t.debug("SET TargetHeatingCoolingState", "requested", state)
	return HeatingCoolingHeat
}

// CurrentTemperature returns the measured temperature.
func (t *Thermostat) CurrentTemperature(ctx context.Context) (float64, error) {
	t.debug("GET CurrentTemperature")
	return t.ctrl.Temperature(ctx)
}

// TargetTemperature returns the active setpoint.
func (t *Thermostat) TargetTemperature(ctx context.Context) (float64, error) {
	t.debug("GET TargetTemperature")
	return t.ctrl.TargetTemperature(ctx)
}

// SetTargetTemperature writes a setpoint using the client's regulation mode.
func (t *Thermostat) SetTargetTemperature(ctx context.Context, degrees float64) error {
	t.debug("SET TargetTemperature", "value", degrees)
	return t.ctrl.SetTargetTemperature(ctx, degrees)
}

// TemperatureDisplayUnits returns DisplayUnitsCelsius or DisplayUnitsFahrenheit.
func (t *Thermostat) TemperatureDisplayUnits(ctx context.Context) (int, error) {
	t.debug("GET TemperatureDisplayUnits")
	unit, err := t.ctrl.TemperatureUnit(ctx)
	if err != nil {
		return DisplayUnitsFahrenheit, err
	}
	return UnitToDisplay(unit), nil
}

// SetTemperatureDisplayUnits changes the account unit.
func (t *Thermostat) SetTemperatureDisplayUnits(ctx context.Context, units int) error {
	t.debug("SET TemperatureDisplayUnits", "value", units)
	unit, err := DisplayToUnit(units)
	if err != nil {
		return err
	}
	return t.ctrl.SetTemperatureUnit(ctx, unit)
}

// Snapshot reads everything the accessory exposes.
func (t *Thermostat) Snapshot(ctx context.Context) (State, error) {
	st, err := t.ctrl.State(ctx)
	if err != nil {
		return State{}, err
	}
	unit, err := t.ctrl.TemperatureUnit(ctx)
	if err != nil {
		return State{}, err
	}

	return State{
		CurrentTemperature:         st.Temperature,
		TargetTemperature:          st.TargetTemperature,
		TemperatureDisplayUnits:    UnitToDisplay(unit),
		DisplayUnits:               unit.String(),
		CurrentHeatingCoolingState: HeatingCoolingHeat,
		TargetHeatingCoolingState:  HeatingCoolingHeat,
	}, nil
}

// UnitToDisplay converts a vendor unit to the display-units number.
func UnitToDisplay(unit ditraheat.TemperatureUnit) int {
	if unit == ditraheat.Celsius {
		return DisplayUnitsCelsius
	}
	return DisplayUnitsFahrenheit
}

// DisplayToUnit converts a display-units number to a vendor unit.
func DisplayToUnit(units int) (ditraheat.TemperatureUnit, error) {
	switch units {
	case DisplayUnitsCelsius:
		return ditraheat.Celsius, nil
	case DisplayUnitsFahrenheit:
		return ditraheat.Fahrenheit, nil
	}
	return 0, fmt.Errorf("%w: display units %d", ditraheat.ErrInvalidUnit, units)
}
