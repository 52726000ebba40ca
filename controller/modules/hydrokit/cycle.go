package hydrokit

import (
	"log/slog"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
)

// Reading is the outcome of one board in a cycle.
type Reading struct {
	Value float64
	Valid bool
	Code  ezo.ErrorCode
}

func readingOf(b *ezo.Board) Reading {
	v, ok := b.LastReading()
	return Reading{Value: v, Valid: ok, Code: b.Error()}
}

// Report summarizes a completed cycle.
type Report struct {
	Temperature  Reading
	Compensation float64
	PH           Reading
	EC           Reading
}

// Observer is told about every phase and completed cycle.
type Observer interface {
	PhaseFired(Phase)
	CycleCompleted(Report)
}

// Cycle implements the four acquisition steps on top of the registry.
type Cycle struct {
	devices     *ezo.Registry
	compensator *Compensator
	observer    Observer

	temperature  Reading
	compensation float64
}

var _ Steps = (*Cycle)(nil)

func NewCycle(devices *ezo.Registry, observer Observer) *Cycle {
	return &Cycle{
		devices:      devices,
		compensator:  NewCompensator(devices),
		observer:     observer,
		compensation: DefaultTemperature,
	}
}

func (c *Cycle) IssueTempRead() {
	c.sendRead(ezo.RTD)
	c.phaseFired(IssueTempRead)
}

func (c *Cycle) RelayCompensation() {
	c.temperature = c.receive(ezo.RTD)
	c.compensation = c.compensator.Relay()
	slog.Debug("temperature compensation relayed", "value", c.compensation)
	c.phaseFired(RelayCompensation)
}

func (c *Cycle) IssueConcentrationReads() {
	c.sendRead(ezo.PH)
	c.sendRead(ezo.EC)
	c.phaseFired(IssueConcentrationReads)
}

func (c *Cycle) ReportConcentrations() {
	report := Report{
		Temperature:  c.temperature,
		Compensation: c.compensation,
		PH:           c.receive(ezo.PH),
		EC:           c.receive(ezo.EC),
	}
	slog.Info("cycle completed",
		"temp", report.Temperature.Value,
		"ph", report.PH.Value,
		"ec", report.EC.Value,
		"compensation", report.Compensation,
	)
	c.phaseFired(ReportConcentrations)
	if c.observer != nil {
		c.observer.CycleCompleted(report)
	}
}

func (c *Cycle) sendRead(role ezo.Role) {
	b := c.devices.Board(role)
	if err := b.SendReadCmd(); err != nil {
		slog.Warn("sending read command", "board", b.Name(), "error", err)
	}
}

func (c *Cycle) receive(role ezo.Role) Reading {
	b := c.devices.Board(role)
	code := b.ReceiveReadCmd()
	r := readingOf(b)
	if code != ezo.Success {
		slog.Warn("reading failed", "board", b.Name(), "code", code.String())
		return r
	}
	slog.Debug("reading received", "board", b.Name(), "value", r.Value)
	return r
}

func (c *Cycle) phaseFired(p Phase) {
	if c.observer != nil {
		c.observer.PhaseFired(p)
	}
}
