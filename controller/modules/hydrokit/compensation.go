package hydrokit

import (
	"log/slog"
	"math"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
)

const (
	// DefaultTemperature is sent when no usable temperature is available.
	DefaultTemperature = 25.0
	compensationCmd    = "T,"
	// an RTD circuit with no sensor attached reports -1023, well below this floor
	absoluteZero = -273.15
)

// Compensator relays the RTD temperature to the pH and EC circuits.
type Compensator struct {
	devices *ezo.Registry
}

func NewCompensator(devices *ezo.Registry) *Compensator {
	return &Compensator{devices: devices}
}

// Value returns the temperature the concentration circuits should use.
func (c *Compensator) Value() float64 {
	rtd := c.devices.Board(ezo.RTD)
	t, ok := rtd.LastReading()
	return Compensate(t, ok && rtd.Error() == ezo.Success)
}

// Compensate returns t when it is a usable temperature and DefaultTemperature
// otherwise.
func Compensate(t float64, ok bool) float64 {
	if !ok || math.IsNaN(t) || math.IsInf(t, 0) || t < absoluteZero {
		return DefaultTemperature
	}
	return t
}

// Relay sends the same compensation value to both pH and EC and returns it.
func (c *Compensator) Relay() float64 {
	t := c.Value()
	for _, role := range []ezo.Role{ezo.PH, ezo.EC} {
		b := c.devices.Board(role)
		if err := b.SendCmdWithNum(compensationCmd, t); err != nil {
			slog.Warn("sending temperature compensation", "board", b.Name(), "value", t, "error", err)
		}
	}
	return t
}
