package ezo

// ErrorCode is the outcome of the last response parsed from a board.
type ErrorCode int

const (
	Success ErrorCode = iota
	NoData
	SyntaxError
	NotReady
	Timeout
	Unknown
)

// Response status bytes sent by EZO circuits in I2C mode.
const (
	statusSuccess  byte = 1
	statusSyntax   byte = 2
	statusNotReady byte = 254
	statusNoData   byte = 255
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case NoData:
		return "no_data"
	case SyntaxError:
		return "syntax_error"
	case NotReady:
		return "not_ready"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func codeFromStatus(b byte) ErrorCode {
	switch b {
	case statusSuccess:
		return Success
	case statusSyntax:
		return SyntaxError
	case statusNotReady:
		return NotReady
	case statusNoData:
		return NoData
	default:
		return Unknown
	}
}
