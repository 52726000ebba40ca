package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/vmihailenco/msgpack/v5"
)

// MissingValue is published for a sensor that has no valid reading.
const MissingValue = -1023.0

// Message is the published snapshot of the three latest readings.
type Message struct {
	PH   float64 `json:"ph" msgpack:"ph"`
	Temp float64 `json:"temp" msgpack:"temp"`
	EC   float64 `json:"ec" msgpack:"ec"`
}

// Snapshot copies the cached readings out of the registry. It never talks to
// the bus.
func Snapshot(devices *ezo.Registry, missing float64) Message {
	value := func(r ezo.Role) float64 {
		if v, ok := devices.Board(r).LastReading(); ok {
			return v
		}
		return missing
	}
	return Message{
		PH:   value(ezo.PH),
		Temp: value(ezo.RTD),
		EC:   value(ezo.EC),
	}
}

// Encoder serializes a message into a payload.
type Encoder interface {
	Encode(Message) ([]byte, error)
	ContentType() string
}

type JSONEncoder struct{}

func (JSONEncoder) Encode(m Message) ([]byte, error) { return json.Marshal(m) }
func (JSONEncoder) ContentType() string             { return "application/json" }

type MsgpackEncoder struct{}

func (MsgpackEncoder) Encode(m Message) ([]byte, error) { return msgpack.Marshal(m) }
func (MsgpackEncoder) ContentType() string             { return "application/msgpack" }

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return JSONEncoder{}, nil
	case "msgpack":
		return MsgpackEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
