package ezo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

// EnableLine is a GPIO line that powers one circuit.
type EnableLine struct {
	Role      string `json:"role" mapstructure:"role" yaml:"role"`
	Line      int    `json:"line" mapstructure:"line" yaml:"line"`
	ActiveLow bool   `json:"active_low" mapstructure:"active_low" yaml:"active_low"`
}

// Enabler holds the requested lines asserted until Close.
type Enabler struct {
	lines []*gpiocdev.Line
}

// Enable asserts each line on chip. Already requested lines are released if
// any request fails.
func Enable(chip string, lines []EnableLine) (*Enabler, error) {
	e := &Enabler{}
	for _, l := range lines {
		if _, err := ParseRole(l.Role); err != nil {
			e.Close()
			return nil, err
		}
		opts := []gpiocdev.LineReqOption{
			gpiocdev.WithConsumer("hydrokit-" + l.Role),
			gpiocdev.AsOutput(1),
		}
		if l.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := gpiocdev.RequestLine(chip, l.Line, opts...)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("requesting enable line %d for %s: %w", l.Line, l.Role, err)
		}
		slog.Info("circuit enabled", "role", l.Role, "line", l.Line, "active_low", l.ActiveLow)
		e.lines = append(e.lines, line)
	}
	return e, nil
}

func (e *Enabler) Close() error {
	var errs []error
	for _, l := range e.lines {
		errs = append(errs, l.Close())
	}
	e.lines = nil
	return errors.Join(errs...)
}
