package telemetry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestJSONEncoderKeys(t *testing.T) {
	payload, err := JSONEncoder{}.Encode(Message{PH: 7.01, Temp: 23.5, EC: 1500.2})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, map[string]any{"ph": 7.01, "temp": 23.5, "ec": 1500.2}, got)
}

func TestMsgpackEncoderKeys(t *testing.T) {
	payload, err := MsgpackEncoder{}.Encode(Message{PH: 7.01, Temp: 23.5, EC: 1500.2})
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, msgpack.Unmarshal(payload, &got))
	assert.Equal(t, map[string]float64{"ph": 7.01, "temp": 23.5, "ec": 1500.2}, got)
}

func TestNewEncoder(t *testing.T) {
	enc, err := NewEncoder("")
	require.NoError(t, err)
	assert.Equal(t, "application/json", enc.ContentType())

	enc, err = NewEncoder("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "application/msgpack", enc.ContentType())

	_, err = NewEncoder("cbor")
	assert.Error(t, err)
}

type frameBus struct{ frames map[byte]string }

func (b frameBus) WriteBytes(byte, []byte) error { return nil }
func (b frameBus) ReadBytes(addr byte, n int) ([]byte, error) {
	f := make([]byte, n)
	f[0] = 1
	copy(f[1:], b.frames[addr])
	return f, nil
}

func TestSnapshot(t *testing.T) {
	bus := frameBus{frames: map[byte]string{99: "7.01", 102: "23.5"}}
	devices, err := ezo.NewRegistry(bus, ezo.DefaultAddresses)
	require.NoError(t, err)

	assert.Equal(t, Message{PH: MissingValue, Temp: MissingValue, EC: MissingValue}, Snapshot(devices, MissingValue))

	for _, r := range []ezo.Role{ezo.PH, ezo.RTD} {
		b := devices.Board(r)
		require.NoError(t, b.SendReadCmd())
		require.Equal(t, ezo.Success, b.ReceiveReadCmd())
	}
	assert.Equal(t, Message{PH: 7.01, Temp: 23.5, EC: -1}, Snapshot(devices, -1))
}

type recordingMessenger struct {
	topic   string
	payload []byte
	err     error
}

func (m *recordingMessenger) Connected() bool { return true }
func (m *recordingMessenger) Publish(topic string, payload []byte) error {
	m.topic, m.payload = topic, payload
	return m.err
}

func TestPublisher(t *testing.T) {
	m := &recordingMessenger{}
	p := NewPublisher(m, JSONEncoder{}, "hydroponic_kit/state")

	require.NoError(t, p.Publish(Message{PH: 7.01, Temp: 23.5, EC: 1500.2}))
	assert.Equal(t, "hydroponic_kit/state", m.topic)
	assert.JSONEq(t, `{"ph":7.01,"temp":23.5,"ec":1500.2}`, string(m.payload))

	m.err = errors.New("broker gone")
	assert.Error(t, p.Publish(Message{}))
}
