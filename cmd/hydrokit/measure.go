package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/reef-pi/hydrokit/controller/modules/hydrokit"
	"github.com/reef-pi/hydrokit/controller/utils"
)

// measure takes one compensated reading of every sensor through the hal
// driver and writes them to w, one "role value" line each.
func measure(ctx context.Context, d hal.AnalogInputDriver, settle time.Duration, w io.Writer) error {
	var errs []error
	rtd, err := d.AnalogInputPin(int(ezo.RTD))
	if err != nil {
		return err
	}
	t, err := rtd.Measure()
	if err != nil {
		errs = append(errs, err)
	}
	comp := hydrokit.Compensate(t, err == nil)
	report(w, ezo.RTD, t, err)

	var concentrations []hal.AnalogInputPin
	for _, role := range []ezo.Role{ezo.PH, ezo.EC} {
		pin, err := d.AnalogInputPin(int(role))
		if err != nil {
			return err
		}
		if s, ok := pin.(ezo.TemperatureSetter); ok {
			if err := s.SetTemperatureC(comp); err != nil {
				slog.Warn("sending temperature compensation", "pin", pin.Name(), "error", err)
			}
		}
		concentrations = append(concentrations, pin)
	}
	if err := utils.Sleep(ctx, settle); err != nil {
		return err
	}
	for _, pin := range concentrations {
		v, err := pin.Measure()
		if err != nil {
			errs = append(errs, err)
		}
		report(w, ezo.Role(pin.Number()), v, err)
	}
	return errors.Join(errs...)
}

func report(w io.Writer, role ezo.Role, v float64, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s\terror: %v\n", role, err)
		return
	}
	fmt.Fprintf(w, "%s\t%.3f\n", role, v)
}
