package ezo

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	simReadDelay    = 600 * time.Millisecond
	simCommandDelay = 300 * time.Millisecond
)

type simBoard struct {
	base      float64
	amplitude float64
	pending   string
	issuedAt  time.Time
	temp      float64
	x         float64
}

// SimBus emulates EZO circuits for running without hardware.
type SimBus struct {
	mu     sync.Mutex
	now    func() time.Time
	boards map[byte]*simBoard
}

// NewSimBus creates a bus with pH, EC and RTD circuits at addrs. The pump
// address answers but only acknowledges commands.
func NewSimBus(addrs Addresses) *SimBus {
	return &SimBus{
		now: time.Now,
		boards: map[byte]*simBoard{
			addrs.PH:   {base: 7.0, amplitude: 0.05},
			addrs.EC:   {base: 1500, amplitude: 10},
			addrs.RTD:  {base: 23.5, amplitude: 0.2},
			addrs.Pump: {},
		},
	}
}

// SetClock replaces the time source.
func (s *SimBus) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *SimBus) WriteBytes(addr byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[addr]
	if !ok {
		return fmt.Errorf("no device at address %d", addr)
	}
	b.pending = string(value)
	b.issuedAt = s.now()
	return nil
}

func (s *SimBus) ReadBytes(addr byte, num int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[addr]
	if !ok {
		return nil, fmt.Errorf("no device at address %d", addr)
	}
	frame := make([]byte, num)
	if b.pending == "" {
		frame[0] = statusNoData
		return frame, nil
	}
	cmd := strings.ToUpper(b.pending)
	delay := simCommandDelay
	if cmd == readCmd {
		delay = simReadDelay
	}
	if s.now().Sub(b.issuedAt) < delay {
		frame[0] = statusNotReady
		return frame, nil
	}
	b.pending = ""
	frame[0] = statusSuccess
	switch {
	case cmd == readCmd && b.amplitude > 0:
		b.x += 0.1
		v := b.base + b.amplitude*math.Sin(b.x) + b.amplitude*(rand.Float64()-0.5)/5
		copy(frame[1:], fmt.Sprintf("%.2f", v))
	case cmd == readCmd:
		frame[0] = statusSyntax
	case strings.HasPrefix(cmd, "T,"):
		if _, err := fmt.Sscanf(cmd, "T,%f", &b.temp); err != nil {
			frame[0] = statusSyntax
		}
	default:
		frame[0] = statusSyntax
	}
	return frame, nil
}
