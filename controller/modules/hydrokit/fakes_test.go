package hydrokit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/stretchr/testify/require"
)

type write struct {
	addr byte
	cmd  string
}

// fakeBus answers reads with a canned frame per address.
type fakeBus struct {
	mu        sync.Mutex
	writes    []write
	responses map[byte][]byte
	writeErr  error
}

func newFakeBus() *fakeBus {
	return &fakeBus{responses: make(map[byte][]byte)}
}

func (f *fakeBus) WriteBytes(addr byte, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, write{addr, string(value)})
	return nil
}

func (f *fakeBus) ReadBytes(addr byte, num int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.responses[addr]
	if !ok {
		return nil, errors.New("remote I/O error")
	}
	frame := make([]byte, num)
	copy(frame, resp)
	return frame, nil
}

func (f *fakeBus) respond(addr byte, status byte, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[addr] = append([]byte{status}, payload...)
}

func (f *fakeBus) writesTo(addr byte) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cmds []string
	for _, w := range f.writes {
		if w.addr == addr {
			cmds = append(cmds, w.cmd)
		}
	}
	return cmds
}

func newTestRegistry(t *testing.T) (*ezo.Registry, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	r, err := ezo.NewRegistry(bus, ezo.DefaultAddresses)
	require.NoError(t, err)
	return r, bus
}

// readAll issues and collects a read on every sensor board.
func readAll(t *testing.T, r *ezo.Registry) {
	t.Helper()
	for _, role := range []ezo.Role{ezo.PH, ezo.EC, ezo.RTD} {
		b := r.Board(role)
		require.NoError(t, b.SendReadCmd())
		b.ReceiveReadCmd()
	}
}

type fakeLink struct {
	mu        sync.Mutex
	connected bool
	connects  int
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLink) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects++
	if err := ctx.Err(); err != nil {
		return err
	}
	l.connected = true
	return nil
}

type fakeBroker struct {
	fakeLink
	topics     []string
	payloads   [][]byte
	publishErr error
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, payload)
	return nil
}

// fakeClock advances by step on every sleep.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}
