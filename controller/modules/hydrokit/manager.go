package hydrokit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/reef-pi/hydrokit/controller/connectivity"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/reef-pi/hydrokit/controller/telemetry"
	"github.com/reef-pi/hydrokit/controller/utils"
)

const maxLogEntries = 100

// Broker is the messaging collaborator with an explicit, blocking connect.
type Broker interface {
	telemetry.Messenger
	Connect(ctx context.Context) error
}

// Options wires the controller to its collaborators.
type Options struct {
	Config  Config
	Devices *ezo.Registry
	Link    connectivity.Link
	Broker  Broker
	Encoder telemetry.Encoder
	Topic   string
	Missing float64
}

// Controller runs the outer loop: it drives the sequencer, keeps the link and
// broker up and publishes one telemetry message per iteration.
type Controller struct {
	cfg       Config
	devices   *ezo.Registry
	sequencer *Sequencer
	link      connectivity.Link
	broker    Broker
	publisher *telemetry.Publisher
	metrics   *Metrics
	missing   float64

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	notify func(state string)

	mu       sync.Mutex
	logs     []string
	started  time.Time
	devState []DeviceStatus
	last     LastPublish
	report   *Report
}

func New(o Options) (*Controller, error) {
	schedule, err := o.Config.Schedule()
	if err != nil {
		return nil, err
	}
	if o.Devices == nil || o.Link == nil || o.Broker == nil || o.Encoder == nil {
		return nil, fmt.Errorf("controller requires devices, link, broker and encoder")
	}
	m := &Controller{
		cfg:       o.Config,
		devices:   o.Devices,
		link:      o.Link,
		broker:    o.Broker,
		publisher: telemetry.NewPublisher(o.Broker, o.Encoder, o.Topic),
		metrics:   NewMetrics(),
		missing:   o.Missing,
		now:       time.Now,
		sleep:     utils.Sleep,
		notify:    sdNotify,
	}
	m.sequencer = NewSequencer(schedule, NewCycle(o.Devices, m))
	m.refreshDevices()
	return m, nil
}

func (m *Controller) Metrics() *Metrics { return m.metrics }

// Run loops until ctx is cancelled. Reconnecting the link or the broker
// blocks the loop, and with it the acquisition cycle, until it succeeds.
func (m *Controller) Run(ctx context.Context) error {
	m.mu.Lock()
	m.started = m.now()
	m.mu.Unlock()
	m.sequencer.Reset()
	m.notify(daemon.SdNotifyReady)
	m.appendLog("Acquisition started")
	for {
		m.iterate(ctx)
		if err := m.sleep(ctx, m.cfg.LoopInterval); err != nil {
			m.notify(daemon.SdNotifyStopping)
			m.appendLog("Acquisition stopped")
			return nil
		}
	}
}

func (m *Controller) iterate(ctx context.Context) {
	if p, ok := m.sequencer.Tick(m.now()); ok {
		slog.Debug("phase fired", "phase", p.String())
	}
	defer m.notify(daemon.SdNotifyWatchdog)
	defer m.refreshDevices()

	if !m.link.Connected() {
		m.appendLog("Network down, reconnecting")
		if err := m.link.Connect(ctx); err != nil {
			return
		}
		m.appendLog("Network connected")
	}
	if !m.broker.Connected() {
		m.appendLog("Broker disconnected, reconnecting")
		if err := m.broker.Connect(ctx); err != nil {
			return
		}
		m.appendLog("Broker connected")
	}

	msg := telemetry.Snapshot(m.devices, m.missing)
	err := m.publisher.Publish(msg)
	m.metrics.published(err)
	if err != nil {
		slog.Error("publishing telemetry", "topic", m.publisher.Topic(), "error", err)
	} else {
		slog.Info("telemetry published", "ph", msg.PH, "temp", msg.Temp, "ec", msg.EC)
	}
	m.recordPublish(msg, err)
}

// PhaseFired and CycleCompleted make the controller the cycle's observer.
func (m *Controller) PhaseFired(p Phase) {
	m.metrics.PhaseFired(p)
}

func (m *Controller) CycleCompleted(r Report) {
	m.metrics.CycleCompleted(r)
	for _, f := range []struct {
		label string
		r     Reading
	}{{"RTD", r.Temperature}, {"PH", r.PH}, {"EC", r.EC}} {
		if f.r.Code != ezo.Success {
			m.appendLog(fmt.Sprintf("%s: Reading failed (%s)", f.label, f.r.Code))
		}
	}
	m.mu.Lock()
	m.report = &r
	m.mu.Unlock()
}

// appendLog adds an entry to the in-memory activity log, capped at 100 entries.
func (m *Controller) appendLog(msg string) {
	entry := fmt.Sprintf("%s %s", m.now().Format("15:04:05"), msg)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogEntries {
		m.logs = m.logs[len(m.logs)-maxLogEntries:]
	}
}

// refreshDevices copies board state for the API, which must not touch the
// boards from its own goroutines.
func (m *Controller) refreshDevices() {
	state := make([]DeviceStatus, 0, len(ezo.Roles))
	m.devices.Each(func(role ezo.Role, b *ezo.Board) {
		s := DeviceStatus{
			Role:    role.String(),
			Name:    b.Name(),
			Address: b.Address(),
			Error:   b.Error().String(),
		}
		if v, ok := b.LastReading(); ok {
			s.Reading = &v
		}
		state = append(state, s)
	})
	m.mu.Lock()
	m.devState = state
	m.mu.Unlock()
}

func (m *Controller) recordPublish(msg telemetry.Message, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = LastPublish{Topic: m.publisher.Topic(), Message: msg, At: m.now()}
	if err != nil {
		m.last.Error = err.Error()
	}
}

func sdNotify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Debug("notifying systemd", "state", state, "error", err)
	}
}
