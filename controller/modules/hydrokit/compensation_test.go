package hydrokit

import (
	"math"
	"testing"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompensatorRelaysTemperature(t *testing.T) {
	devices, bus := newTestRegistry(t)
	bus.respond(102, 1, "23.5")
	rtd := devices.Board(ezo.RTD)
	require.NoError(t, rtd.SendReadCmd())
	require.Equal(t, ezo.Success, rtd.ReceiveReadCmd())

	got := NewCompensator(devices).Relay()

	assert.Equal(t, 23.5, got)
	assert.Equal(t, []string{"T,23.500"}, bus.writesTo(99))
	assert.Equal(t, []string{"T,23.500"}, bus.writesTo(100))
}

func TestCompensatorFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		status  byte
		payload string
		read    bool
	}{
		{name: "never read"},
		{name: "not ready", status: 254, read: true},
		{name: "syntax error", status: 2, read: true},
		{name: "sensor disconnected", status: 1, payload: "-1023.000", read: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, bus := newTestRegistry(t)
			if tt.read {
				bus.respond(102, tt.status, tt.payload)
				rtd := devices.Board(ezo.RTD)
				require.NoError(t, rtd.SendReadCmd())
				rtd.ReceiveReadCmd()
			}
			c := NewCompensator(devices)
			assert.Equal(t, DefaultTemperature, c.Value())
			assert.Equal(t, DefaultTemperature, c.Relay())
			assert.Equal(t, []string{"T,25.000"}, bus.writesTo(99))
			assert.Equal(t, []string{"T,25.000"}, bus.writesTo(100))
		})
	}
}

func TestCompensatorBusError(t *testing.T) {
	devices, bus := newTestRegistry(t)
	rtd := devices.Board(ezo.RTD)
	require.NoError(t, rtd.SendReadCmd())
	// no response registered for the RTD: the read fails at the bus
	assert.Equal(t, ezo.Timeout, rtd.ReceiveReadCmd())
	assert.Equal(t, DefaultTemperature, NewCompensator(devices).Value())
	assert.Empty(t, bus.writesTo(99))
}

func TestCompensatorRejectsNonFinite(t *testing.T) {
	for _, payload := range []string{"nan", "inf", "-Inf"} {
		t.Run(payload, func(t *testing.T) {
			devices, bus := newTestRegistry(t)
			bus.respond(102, 1, payload)
			rtd := devices.Board(ezo.RTD)
			require.NoError(t, rtd.SendReadCmd())
			assert.Equal(t, ezo.Unknown, rtd.ReceiveReadCmd())

			assert.Equal(t, DefaultTemperature, NewCompensator(devices).Relay())
			assert.Equal(t, []string{"T,25.000"}, bus.writesTo(99))
			assert.Equal(t, []string{"T,25.000"}, bus.writesTo(100))
		})
	}
}

func TestCompensatePlausibilityFloor(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		ok   bool
		want float64
	}{
		{name: "absolute zero is forwarded", t: -273.15, ok: true, want: -273.15},
		{name: "below absolute zero", t: -273.16, ok: true, want: DefaultTemperature},
		{name: "far below absolute zero", t: -500, ok: true, want: DefaultTemperature},
		{name: "sensor disconnected", t: -1023, ok: true, want: DefaultTemperature},
		{name: "freezing", t: 0, ok: true, want: 0},
		{name: "not valid", t: 23.5, ok: false, want: DefaultTemperature},
		{name: "nan", t: math.NaN(), ok: true, want: DefaultTemperature},
		{name: "inf", t: math.Inf(1), ok: true, want: DefaultTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compensate(tt.t, tt.ok))
		})
	}
}

func TestCompensatorDropsReadingBelowAbsoluteZero(t *testing.T) {
	devices, bus := newTestRegistry(t)
	bus.respond(102, 1, "-500.000")
	rtd := devices.Board(ezo.RTD)
	require.NoError(t, rtd.SendReadCmd())
	require.Equal(t, ezo.Success, rtd.ReceiveReadCmd())

	// a successful -500 is below absolute zero and never reaches the circuits
	assert.Equal(t, DefaultTemperature, NewCompensator(devices).Relay())
	assert.Equal(t, []string{"T,25.000"}, bus.writesTo(99))
}
