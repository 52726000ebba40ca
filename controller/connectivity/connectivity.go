// Package connectivity keeps the network link up before the broker is used.
package connectivity

import (
	"context"
	"fmt"
	"time"
)

// Link is the network association collaborator.
type Link interface {
	Connected() bool
	// Connect blocks until the link is usable or ctx is done.
	Connect(ctx context.Context) error
}

// Config selects and tunes the link implementation.
type Config struct {
	Manager        string        `json:"manager" mapstructure:"manager" yaml:"manager"`
	ConnectionUUID string        `json:"connection_uuid" mapstructure:"connection_uuid" yaml:"connection_uuid"`
	RetryDelay     time.Duration `json:"retry_delay" mapstructure:"retry_delay" yaml:"retry_delay"`
}

var DefaultConfig = Config{
	Manager:    "none",
	RetryDelay: 500 * time.Millisecond,
}

// New builds the link named by cfg.Manager.
func New(cfg Config) (Link, error) {
	switch cfg.Manager {
	case "", "none":
		return Static{}, nil
	case "networkmanager":
		return NewNetworkManager(cfg)
	default:
		return nil, fmt.Errorf("unknown network manager %q", cfg.Manager)
	}
}

// Static is a link that is always up, e.g. wired ethernet managed by the OS.
type Static struct{}

func (Static) Connected() bool                 { return true }
func (Static) Connect(_ context.Context) error { return nil }
