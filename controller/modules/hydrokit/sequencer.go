package hydrokit

import (
	"fmt"
	"time"
)

// Phase is one step of the acquisition cycle.
type Phase int

const (
	IssueTempRead Phase = iota
	RelayCompensation
	IssueConcentrationReads
	ReportConcentrations
	numPhases
)

func (p Phase) String() string {
	switch p {
	case IssueTempRead:
		return "issue_temp_read"
	case RelayCompensation:
		return "relay_compensation"
	case IssueConcentrationReads:
		return "issue_concentration_reads"
	case ReportConcentrations:
		return "report_concentrations"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Next returns the phase that follows p, wrapping after the last one.
func (p Phase) Next() Phase {
	return (p + 1) % numPhases
}

// Schedule holds the delay that must elapse after each phase fires before
// the following phase may fire.
type Schedule [numPhases]time.Duration

// NewSchedule derives the poll delay so that one cycle lasts period.
func NewSchedule(reading, short, period time.Duration) (Schedule, error) {
	if reading < 0 || short < 0 {
		return Schedule{}, fmt.Errorf("negative settle delay (reading %s, compensation %s)", reading, short)
	}
	poll := period - 2*reading - short
	if poll < 0 {
		return Schedule{}, fmt.Errorf("cycle period %s is shorter than its settle delays %s", period, 2*reading+short)
	}
	return Schedule{reading, short, reading, poll}, nil
}

// After returns the delay following p.
func (s Schedule) After(p Phase) time.Duration {
	return s[p]
}

// Period is the length of one full cycle.
func (s Schedule) Period() time.Duration {
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total
}

// Steps is the logic behind each phase.
type Steps interface {
	IssueTempRead()
	RelayCompensation()
	IssueConcentrationReads()
	ReportConcentrations()
}

// Sequencer fires phases in strict round robin order. It has no timer of its
// own; the caller drives it with Tick.
type Sequencer struct {
	schedule Schedule
	steps    Steps
	pending  Phase
	start    time.Time
	wait     time.Duration
	armed    bool
}

func NewSequencer(schedule Schedule, steps Steps) *Sequencer {
	s := &Sequencer{schedule: schedule, steps: steps}
	s.Reset()
	return s
}

// Reset makes the first phase eligible on the next Tick.
func (s *Sequencer) Reset() {
	s.pending = IssueTempRead
	s.start = time.Time{}
	s.wait = 0
	s.armed = false
}

// Pending is the phase that fires next.
func (s *Sequencer) Pending() Phase {
	return s.pending
}

// Tick fires the pending phase if its delay has elapsed. At most one phase
// fires per call, however late the call is.
func (s *Sequencer) Tick(now time.Time) (Phase, bool) {
	if s.armed && now.Sub(s.start) < s.wait {
		return s.pending, false
	}
	fired := s.pending
	s.fire(fired)
	s.pending = fired.Next()
	s.wait = s.schedule.After(fired)
	s.start = now
	s.armed = true
	return fired, true
}

func (s *Sequencer) fire(p Phase) {
	switch p {
	case IssueTempRead:
		s.steps.IssueTempRead()
	case RelayCompensation:
		s.steps.RelayCompensation()
	case IssueConcentrationReads:
		s.steps.IssueConcentrationReads()
	case ReportConcentrations:
		s.steps.ReportConcentrations()
	}
}
