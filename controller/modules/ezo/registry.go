package ezo

import "fmt"

// Role is the logical job of a board on the bus.
type Role int

const (
	PH Role = iota
	EC
	RTD
	Pump
)

var Roles = []Role{PH, EC, RTD, Pump}

func (r Role) String() string {
	switch r {
	case PH:
		return "ph"
	case EC:
		return "ec"
	case RTD:
		return "rtd"
	case Pump:
		return "pump"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole maps the lower case role name back to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Addresses holds the I2C address of each role.
type Addresses struct {
	PH   byte `json:"ph" mapstructure:"ph" yaml:"ph"`
	EC   byte `json:"ec" mapstructure:"ec" yaml:"ec"`
	RTD  byte `json:"rtd" mapstructure:"rtd" yaml:"rtd"`
	Pump byte `json:"pump" mapstructure:"pump" yaml:"pump"`
}

// DefaultAddresses are the factory addresses of the hydroponics kit circuits.
var DefaultAddresses = Addresses{PH: 99, EC: 100, RTD: 102, Pump: 103}

func (a Addresses) of(r Role) byte {
	switch r {
	case PH:
		return a.PH
	case EC:
		return a.EC
	case RTD:
		return a.RTD
	default:
		return a.Pump
	}
}

// Registry owns exactly one board per role. Roles are fixed at construction.
type Registry struct {
	bus    Bus
	boards [len(roleNames)]*Board
}

var roleNames = [...]string{"PH", "EC", "RTD", "PMP"}

func NewRegistry(bus Bus, addrs Addresses) (*Registry, error) {
	seen := make(map[byte]Role)
	r := &Registry{bus: bus}
	for _, role := range Roles {
		addr := addrs.of(role)
		if other, ok := seen[addr]; ok {
			return nil, fmt.Errorf("address %d assigned to both %s and %s", addr, other, role)
		}
		seen[addr] = role
		r.boards[role] = NewBoard(bus, addr, roleNames[role])
	}
	return r, nil
}

func (r *Registry) Board(role Role) *Board {
	return r.boards[role]
}

// Each visits boards in role order.
func (r *Registry) Each(fn func(Role, *Board)) {
	for _, role := range Roles {
		fn(role, r.boards[role])
	}
}

// Close releases the bus when it supports it.
func (r *Registry) Close() error {
	if c, ok := r.bus.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
