package nsm

import "errors"

// Code is the numeric status of an engine operation as carried on the device
// protocol. The values are a stable contract and must not be renumbered.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidSlot
	CodeLocked
	CodeInvalidLength
	CodeCertMissing
	CodeNoMemory
	CodeClosed

	// CodeUnknown is reported for errors outside the device taxonomy. It is
	// never produced by the engine itself.
	CodeUnknown Code = -1
)

// The engine's error taxonomy. Every failing operation returns exactly one of
// these, possibly wrapped with call context; match with errors.Is.
var (
	ErrInvalidSlot   = errors.New("slot is out of range")
	ErrLocked        = errors.New("pcr slot is locked")
	ErrInvalidLength = errors.New("length must be greater than zero")
	ErrCertMissing   = errors.New("certificate slot is empty")
	ErrNoMemory      = errors.New("could not allocate memory")
	ErrClosed        = errors.New("session is closed")
)

// CodeOf maps an engine error to its protocol status code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidSlot):
		return CodeInvalidSlot
	case errors.Is(err, ErrLocked):
		return CodeLocked
	case errors.Is(err, ErrInvalidLength):
		return CodeInvalidLength
	case errors.Is(err, ErrCertMissing):
		return CodeCertMissing
	case errors.Is(err, ErrNoMemory):
		return CodeNoMemory
	case errors.Is(err, ErrClosed):
		return CodeClosed
	default:
		return CodeUnknown
	}
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidSlot:
		return "invalid_slot"
	case CodeLocked:
		return "locked"
	case CodeInvalidLength:
		return "invalid_length"
	case CodeCertMissing:
		return "cert_missing"
	case CodeNoMemory:
		return "no_memory"
	case CodeClosed:
		return "closed"
	default:
		return "unknown"
	}
}
