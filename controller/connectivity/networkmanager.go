package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/reef-pi/hydrokit/controller/utils"
)

const (
	nmDest          = "org.freedesktop.NetworkManager"
	nmPath          = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmSettingsPath  = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	nmState         = nmDest + ".State"
	nmActivate      = nmDest + ".ActivateConnection"
	nmByUUID        = nmDest + ".Settings.GetConnectionByUuid"
	nmGlobalConnect = uint32(70)
)

type busObject interface {
	GetProperty(p string) (dbus.Variant, error)
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// NetworkManager asks NetworkManager over the system D-Bus for the link
// state and activates a saved connection when it is down.
type NetworkManager struct {
	conn     *dbus.Conn
	nm       busObject
	settings busObject
	cfg      Config
	sleep    func(context.Context, time.Duration) error
}

func NewNetworkManager(cfg Config) (*NetworkManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	n := newNetworkManager(conn.Object(nmDest, nmPath), conn.Object(nmDest, nmSettingsPath), cfg)
	n.conn = conn
	return n, nil
}

func newNetworkManager(nm, settings busObject, cfg Config) *NetworkManager {
	return &NetworkManager{nm: nm, settings: settings, cfg: cfg, sleep: utils.Sleep}
}

func (n *NetworkManager) Connected() bool {
	v, err := n.nm.GetProperty(nmState)
	if err != nil {
		slog.Warn("reading NetworkManager state", "error", err)
		return false
	}
	state, ok := v.Value().(uint32)
	return ok && state == nmGlobalConnect
}

// Connect activates the configured connection, if any, then polls until the
// link is globally connected.
func (n *NetworkManager) Connect(ctx context.Context) error {
	if n.Connected() {
		return nil
	}
	if n.cfg.ConnectionUUID != "" {
		if err := n.activate(ctx); err != nil {
			slog.Error("activating network connection", "uuid", n.cfg.ConnectionUUID, "error", err)
		}
	}
	for !n.Connected() {
		slog.Info("connecting to network...")
		if err := n.sleep(ctx, n.cfg.RetryDelay); err != nil {
			return err
		}
	}
	slog.Info("connected to network")
	return nil
}

func (n *NetworkManager) activate(ctx context.Context) error {
	var conn dbus.ObjectPath
	if err := n.settings.CallWithContext(ctx, nmByUUID, 0, n.cfg.ConnectionUUID).Store(&conn); err != nil {
		return fmt.Errorf("looking up connection: %w", err)
	}
	var active dbus.ObjectPath
	if err := n.nm.CallWithContext(ctx, nmActivate, 0, conn, dbus.ObjectPath("/"), dbus.ObjectPath("/")).Store(&active); err != nil {
		return fmt.Errorf("activating %s: %w", conn, err)
	}
	slog.Info("network connection activated", "connection", conn, "active", active)
	return nil
}

func (n *NetworkManager) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
