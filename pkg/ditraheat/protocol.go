package ditraheat

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Constants for the DITRA-HEAT-E-WiFi cloud API
const (
	DefaultBaseURL = "https://ditra-heat-e-wifi.schluter.com"

	// Endpoints
	PathSignIn     = "/api/authenticate/user"
	PathThermostat = "/api/thermostat"
	PathAccount    = "/api/useraccount"

	// Query parameters
	ParamSessionID    = "sessionid"
	ParamSerialNumber = "serialnumber"

	// Sign-in error codes
	SignInOK              = 0
	SignInInvalidEmail    = 1
	SignInInvalidPassword = 2

	// DefaultComfortDuration is how long a Temporary setpoint lasts when no
	// end time is given.
	DefaultComfortDuration = 2 * time.Hour

	// ComfortEndTimeLayout matches the ISO 8601 form the vendor app sends.
	ComfortEndTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// RegulationMode is the vendor operating mode of the thermostat.
type RegulationMode int

const (
	ModeSchedule  RegulationMode = 1 // follow the stored schedule
	ModeTemporary RegulationMode = 2 // comfort setpoint until an end time
	ModePermanent RegulationMode = 3 // manual setpoint until changed
	ModeAway      RegulationMode = 4 // vacation
)

func (m RegulationMode) String() string {
	switch m {
	case ModeSchedule:
		return "schedule"
	case ModeTemporary:
		return "temporary"
	case ModePermanent:
		return "permanent"
	case ModeAway:
		return "away"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseRegulationMode accepts a mode name or its numeric vendor value.
func ParseRegulationMode(s string) (RegulationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "schedule", "1":
		return ModeSchedule, nil
	case "temporary", "comfort", "2":
		return ModeTemporary, nil
	case "permanent", "manual", "3":
		return ModePermanent, nil
	case "away", "vacation", "4":
		return ModeAway, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// TemperatureUnit is the account-level display unit.
type TemperatureUnit int

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

func (u TemperatureUnit) String() string {
	if u == Celsius {
		return "celsius"
	}
	return "fahrenheit"
}

// ParseTemperatureUnit accepts "celsius"/"c" or "fahrenheit"/"f".
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "celsius", "c":
		return Celsius, nil
	case "fahrenheit", "f":
		return Fahrenheit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// ThermostatState is a snapshot of the device readings in degrees.
type ThermostatState struct {
	Temperature       float64
	TargetTemperature float64
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	SessionID string `json:"SessionId"`
}

type thermostatResponse struct {
	Temperature  *int `json:"Temperature"`
	SetPointTemp *int `json:"SetPointTemp"`
}

type accountSettings struct {
	TempUnitIsCelsius *bool `json:"TempUnitIsCelsius"`
}

// thermostatWrite is the body of POST /api/thermostat. Optional fields are
// omitted so each mode sends only its own keys.
type thermostatWrite struct {
	ManualTemperature  *int           `json:"ManualTemperature,omitempty"`
	ComfortTemperature *int           `json:"ComfortTemperature,omitempty"`
	ComfortEndTime     string         `json:"ComfortEndTime,omitempty"`
	RegulationMode     RegulationMode `json:"RegulationMode"`
	VacationEnabled    bool           `json:"VacationEnabled"`
}

// maxWireTemperature bounds hundredths so they fit the vendor's int32 fields.
const maxWireTemperature = math.MaxInt32

// CheckTemperature reports whether degrees can be sent as a setpoint.
func CheckTemperature(degrees float64) error {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, degrees)
	}
	if math.Abs(math.Round(degrees*100)) > maxWireTemperature {
		return fmt.Errorf("%w: %v out of range", ErrInvalidTemperature, degrees)
	}
	return nil
}

// ToWire converts degrees to hundredths, rounding half away from zero.
// degrees must pass CheckTemperature.
func ToWire(degrees float64) int {
	return int(math.Round(degrees * 100))
}

// FromWire converts hundredths of a degree to degrees.
func FromWire(v int) float64 {
	return float64(v) / 100
}

// buildWrite creates the payload for setting a target temperature in the
// given mode. Schedule, Away and unknown modes restore the schedule and
// drop the value.
func buildWrite(mode RegulationMode, degrees float64, endTime time.Time) thermostatWrite {
	switch mode {
	case ModePermanent:
		v := ToWire(degrees)
		return thermostatWrite{
			ManualTemperature: &v,
			RegulationMode:    ModePermanent,
		}
	case ModeTemporary:
		v := ToWire(degrees)
		return thermostatWrite{
			ComfortTemperature: &v,
			ComfortEndTime:     FormatComfortEndTime(endTime),
			RegulationMode:     ModeTemporary,
		}
	default:
		return thermostatWrite{RegulationMode: ModeSchedule}
	}
}

// FormatComfortEndTime renders t in UTC with millisecond precision.
func FormatComfortEndTime(t time.Time) string {
	return t.UTC().Format(ComfortEndTimeLayout)
}
