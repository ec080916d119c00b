// Package homekit publishes the thermostat as a HomeKit accessory.
package homekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brutella/hap"
	hapaccessory "github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"

	"github.com/zberg/go-ditraheat/internal/accessory"
)

const (
	manufacturer = "Schluter Systems"
	model        = "DITRA-HEAT-E-WiFi"

	// Setpoint range accepted by the floor controller, in Celsius.
	minSetpoint  = 5.0
	maxSetpoint  = 40.0
	setpointStep = 0.5

	commandTimeout = 30 * time.Second
)

// Config holds the HomeKit server settings.
type Config struct {
	Name         string
	SerialNumber string
	Pin          string
	StorePath    string
	Addr         string
	PollInterval time.Duration
}

type thermostatService struct {
	*service.S

	CurrentHeatingCoolingState *characteristic.CurrentHeatingCoolingState
	TargetHeatingCoolingState  *characteristic.TargetHeatingCoolingState
	CurrentTemperature         *characteristic.CurrentTemperature
	TargetTemperature          *characteristic.TargetTemperature
	TemperatureDisplayUnits    *characteristic.TemperatureDisplayUnits
}

func newThermostatService() *thermostatService {
	s := thermostatService{}
	s.S = service.New(service.TypeThermostat)

	s.CurrentHeatingCoolingState = characteristic.NewCurrentHeatingCoolingState()
	s.CurrentHeatingCoolingState.SetValue(accessory.HeatingCoolingHeat)
	s.AddC(s.CurrentHeatingCoolingState.C)

	// Heat is the only valid target.
	s.TargetHeatingCoolingState = characteristic.NewTargetHeatingCoolingState()
	s.TargetHeatingCoolingState.SetMinValue(accessory.HeatingCoolingHeat)
	s.TargetHeatingCoolingState.SetMaxValue(accessory.HeatingCoolingHeat)
	s.TargetHeatingCoolingState.SetValue(accessory.HeatingCoolingHeat)
	s.AddC(s.TargetHeatingCoolingState.C)

	s.CurrentTemperature = characteristic.NewCurrentTemperature()
	s.AddC(s.CurrentTemperature.C)

	s.TargetTemperature = characteristic.NewTargetTemperature()
	s.TargetTemperature.SetMinValue(minSetpoint)
	s.TargetTemperature.SetMaxValue(maxSetpoint)
	s.TargetTemperature.SetStepValue(setpointStep)
	s.AddC(s.TargetTemperature.C)

	s.TemperatureDisplayUnits = characteristic.NewTemperatureDisplayUnits()
	s.AddC(s.TemperatureDisplayUnits.C)

	return &s
}

// Accessory binds a HomeKit thermostat to the cloud thermostat.
type Accessory struct {
	A *hapaccessory.A

	svc    *thermostatService
	th     *accessory.Thermostat
	logger *slog.Logger
}

// New builds the accessory and routes remote writes to th. logger may be nil.
func New(th *accessory.Thermostat, cfg Config, logger *slog.Logger) *Accessory {
	a := &Accessory{
		A: hapaccessory.New(hapaccessory.Info{
			Name:         cfg.Name,
			SerialNumber: cfg.SerialNumber,
			Manufacturer: manufacturer,
			Model:        model,
		}, hapaccessory.TypeThermostat),
		svc:    newThermostatService(),
		th:     th,
		logger: logger,
	}
	a.A.AddS(a.svc.S)

	a.svc.TargetHeatingCoolingState.OnValueRemoteUpdate(a.setHeatingCoolingState)
	a.svc.TargetTemperature.OnValueRemoteUpdate(a.setTargetTemperature)
	a.svc.TemperatureDisplayUnits.OnValueRemoteUpdate(a.setDisplayUnits)
	return a
}

// Refresh copies the current thermostat state into the characteristics.
func (a *Accessory) Refresh(ctx context.Context) error {
	st, err := a.th.Snapshot(ctx)
	if err != nil {
		return err
	}

	a.svc.CurrentHeatingCoolingState.SetValue(st.CurrentHeatingCoolingState)
	a.svc.TargetHeatingCoolingState.SetValue(st.TargetHeatingCoolingState)
	a.svc.CurrentTemperature.SetValue(st.CurrentTemperature)
	a.svc.TargetTemperature.SetValue(clamp(st.TargetTemperature))
	a.svc.TemperatureDisplayUnits.SetValue(st.TemperatureDisplayUnits)
	return nil
}

// Run serves the accessory and refreshes it every PollInterval until ctx is
// done.
func (a *Accessory) Run(ctx context.Context, cfg Config) error {
	server, err := hap.NewServer(hap.NewFsStore(cfg.StorePath), a.A)
	if err != nil {
		return fmt.Errorf("create homekit server: %w", err)
	}
	server.Pin = cfg.Pin
	if cfg.Addr != "" {
		server.Addr = cfg.Addr
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go a.poll(ctx, interval)

	if a.logger != nil {
		a.logger.Info("homekit accessory published", "name", cfg.Name, "addr", server.Addr)
	}
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("homekit server: %w", err)
	}
	return nil
}

func (a *Accessory) poll(ctx context.Context, interval time.Duration) {
	a.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}

func (a *Accessory) refresh(ctx context.Context) {
	if err := a.Refresh(ctx); err != nil && a.logger != nil && ctx.Err() == nil {
		a.logger.Error("refresh failed", "error", err)
	}
}

func (a *Accessory) setHeatingCoolingState(v int) {
	a.svc.TargetHeatingCoolingState.SetValue(a.th.SetTargetHeatingCoolingState(v))
}

func (a *Accessory) setTargetTemperature(v float64) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := a.th.SetTargetTemperature(ctx, v); err != nil {
		a.warn("set target temperature failed", err)
	}
	a.refresh(ctx)
}

func (a *Accessory) setDisplayUnits(v int) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := a.th.SetTemperatureDisplayUnits(ctx, v); err != nil {
		a.warn("set display units failed", err)
	}
	a.refresh(ctx)
}

func (a *Accessory) warn(msg string, err error) {
	if a.logger != nil {
		a.logger.Warn(msg, "error", err)
	}
}

func clamp(v float64) float64 {
	return min(max(v, minSetpoint), maxSetpoint)
}
