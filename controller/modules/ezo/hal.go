package ezo

import (
	"context"
	"fmt"
	"time"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/hydrokit/controller/utils"
)

const driverName = "Atlas EZO"

// TemperatureSetter is implemented by the pH and EC pins, which accept a
// compensation temperature before measuring.
type TemperatureSetter interface {
	SetTemperatureC(tempC float64) error
}

// Driver exposes the pH, EC and RTD boards of a registry as reef-pi analog
// input pins, numbered by Role. Measuring blocks for the read delay, so it
// must not run alongside the acquisition cycle on the same registry.
type Driver struct {
	meta hal.Metadata
	pins []*analogPin
}

var _ hal.AnalogInputDriver = (*Driver)(nil)

// NewDriver builds the driver. readDelay is how long a pin waits between
// the read command and collecting the response.
func NewDriver(r *Registry, readDelay time.Duration) *Driver {
	d := &Driver{
		meta: hal.Metadata{
			Name:         driverName,
			Description:  "Atlas Scientific EZO pH, EC and RTD circuits in I2C mode",
			Capabilities: []hal.Capability{hal.AnalogInput},
		},
	}
	for _, role := range []Role{PH, EC, RTD} {
		d.pins = append(d.pins, &analogPin{
			board: r.Board(role),
			role:  role,
			delay: readDelay,
			wait:  utils.Sleep,
			meta:  d.meta,
		})
	}
	return d
}

func (d *Driver) Name() string           { return driverName }
func (d *Driver) Metadata() hal.Metadata { return d.meta }
func (d *Driver) Close() error           { return nil }

func (d *Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	switch cap {
	case hal.AnalogInput:
		pins := make([]hal.Pin, len(d.pins))
		for i, p := range d.pins {
			pins[i] = p
		}
		return pins, nil
	default:
		return nil, fmt.Errorf("unsupported capability: %s", cap.String())
	}
}

func (d *Driver) AnalogInputPins() []hal.AnalogInputPin {
	pins := make([]hal.AnalogInputPin, len(d.pins))
	for i, p := range d.pins {
		pins[i] = p
	}
	return pins
}

func (d *Driver) AnalogInputPin(n int) (hal.AnalogInputPin, error) {
	for _, p := range d.pins {
		if p.Number() == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: no analog input %d", driverName, n)
}

// setWait replaces the delay function of every pin.
func (d *Driver) setWait(wait func(context.Context, time.Duration) error) {
	for _, p := range d.pins {
		p.wait = wait
	}
}

type analogPin struct {
	board *Board
	role  Role
	delay time.Duration
	wait  func(context.Context, time.Duration) error
	meta  hal.Metadata
}

func (p *analogPin) Name() string           { return fmt.Sprintf("%s (%s)", driverName, p.board.Name()) }
func (p *analogPin) Number() int            { return int(p.role) }
func (p *analogPin) Close() error           { return nil }
func (p *analogPin) Metadata() hal.Metadata { return p.meta }

// Calibrate is not supported; EZO circuits keep their calibration on board
// and take it through Cal commands.
func (p *analogPin) Calibrate(_ []hal.Measurement) error {
	return fmt.Errorf("%s: calibration is stored on the circuit", p.Name())
}

func (p *analogPin) Value() (float64, error) { return p.Measure() }

// Measure issues a read, waits the read delay and returns the parsed value.
func (p *analogPin) Measure() (float64, error) {
	if err := p.board.SendReadCmd(); err != nil {
		return 0, fmt.Errorf("%s: sending read: %w", p.board.Name(), err)
	}
	if err := p.wait(context.Background(), p.delay); err != nil {
		return 0, err
	}
	if code := p.board.ReceiveReadCmd(); code != Success {
		return 0, fmt.Errorf("%s: reading failed: %s", p.board.Name(), code)
	}
	v, _ := p.board.LastReading()
	return v, nil
}

func (p *analogPin) SetTemperatureC(tempC float64) error {
	if p.role == RTD {
		return fmt.Errorf("%s: temperature compensation does not apply", p.board.Name())
	}
	return p.board.SendCmdWithNum("T,", tempC)
}
