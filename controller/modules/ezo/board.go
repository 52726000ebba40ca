// Package ezo talks to Atlas Scientific EZO circuits in I2C mode.
package ezo

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Each response frame is a status byte followed by a null terminated ASCII payload.
const (
	frameSize = 32
	decimals  = 3
	readCmd   = "R"
)

// Bus is the subset of an I2C bus a board needs. github.com/reef-pi/rpi/i2c.Bus satisfies it.
type Bus interface {
	ReadBytes(addr byte, num int) ([]byte, error)
	WriteBytes(addr byte, value []byte) error
}

// Board is a single EZO circuit. It is not safe for concurrent use.
type Board struct {
	name    string
	addr    byte
	bus     Bus
	reading float64
	valid   bool
	code    ErrorCode
	issued  bool
}

func NewBoard(bus Bus, addr byte, name string) *Board {
	return &Board{
		name: name,
		addr: addr,
		bus:  bus,
		code: NoData,
	}
}

func (b *Board) Name() string  { return b.name }
func (b *Board) Address() byte { return b.addr }

// SendCmd writes a raw command. The response must be collected after the
// circuit's processing delay.
func (b *Board) SendCmd(cmd string) error {
	return b.bus.WriteBytes(b.addr, []byte(cmd))
}

// SendReadCmd requests a reading and arms the next ReceiveReadCmd to parse it.
func (b *Board) SendReadCmd() error {
	b.issued = true
	return b.SendCmd(readCmd)
}

// SendCmdWithNum appends v with three decimals, e.g. "T," and 23.5 sends "T,23.500".
func (b *Board) SendCmdWithNum(prefix string, v float64) error {
	return b.SendCmd(prefix + strconv.FormatFloat(v, 'f', decimals, 64))
}

// ReceiveReadCmd collects the pending response and updates the last reading
// and error code. Any outcome other than Success clears the reading.
func (b *Board) ReceiveReadCmd() ErrorCode {
	b.valid = false
	if !b.issued {
		b.code = NoData
		return b.code
	}
	data, err := b.bus.ReadBytes(b.addr, frameSize)
	if err != nil || len(data) == 0 {
		b.code = Timeout
		return b.code
	}
	b.code = codeFromStatus(data[0])
	if b.code != Success {
		return b.code
	}
	// a pending read stays armed until the circuit answers it
	b.issued = false
	v, ok := parseReading(data[1:])
	if !ok {
		b.code = Unknown
		return b.code
	}
	b.reading = v
	b.valid = true
	return b.code
}

// LastReading returns the most recently parsed value. ok is false when no
// reading has been parsed yet or the last attempt failed.
func (b *Board) LastReading() (v float64, ok bool) {
	return b.reading, b.valid
}

func (b *Board) Error() ErrorCode { return b.code }

// parseReading takes the leading field of a payload such as "1413.2,706.7,0.69,1.000".
// Only finite numbers are readings.
func parseReading(payload []byte) (float64, bool) {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	field, _, _ := strings.Cut(string(payload), ",")
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
