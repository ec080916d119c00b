// Package accessorytest provides an in-memory accessory.Controller.
package accessorytest

import (
	"context"
	"sync"

	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

// Controller records writes and serves canned readings.
type Controller struct {
	mu sync.Mutex

	Reading ditraheat.ThermostatState
	Unit    ditraheat.TemperatureUnit

	// Err, when set, is returned by every call.
	Err error

	Targets []float64
	Units   []ditraheat.TemperatureUnit
}

// New returns a controller reading 21.5 / 22.0 in Celsius.
func New() *Controller {
	return &Controller{
		Reading: ditraheat.ThermostatState{Temperature: 21.5, TargetTemperature: 22},
		Unit:    ditraheat.Celsius,
	}
}

func (c *Controller) State(ctx context.Context) (ditraheat.ThermostatState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return ditraheat.ThermostatState{}, c.Err
	}
	return c.Reading, nil
}

func (c *Controller) Temperature(ctx context.Context) (float64, error) {
	st, err := c.State(ctx)
	return st.Temperature, err
}

func (c *Controller) TargetTemperature(ctx context.Context) (float64, error) {
	st, err := c.State(ctx)
	return st.TargetTemperature, err
}

func (c *Controller) SetTargetTemperature(ctx context.Context, degrees float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Targets = append(c.Targets, degrees)
	c.Reading.TargetTemperature = degrees
	return nil
}

func (c *Controller) TemperatureUnit(ctx context.Context) (ditraheat.TemperatureUnit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return ditraheat.Fahrenheit, c.Err
	}
	return c.Unit, nil
}

func (c *Controller) SetTemperatureUnit(ctx context.Context, unit ditraheat.TemperatureUnit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Units = append(c.Units, unit)
	c.Unit = unit
	return nil
}

// SetErr changes the error returned by every call.
func (c *Controller) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// Writes returns copies of the recorded target and unit writes.
func (c *Controller) Writes() ([]float64, []ditraheat.TemperatureUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.Targets...), append([]ditraheat.TemperatureUnit(nil), c.Units...)
}
