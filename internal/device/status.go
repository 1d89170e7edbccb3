package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDevice matches every well-formed non-success status from the
	// controller. Use errors.As with *StatusError for the code.
	ErrDevice = errors.New("device error")
	// ErrUnresponsive means an expected response did not arrive in time or
	// was cut short.
	ErrUnresponsive = errors.New("device unresponsive")
)

// Status is the first response byte of a command that answers.
type Status byte

const (
	StatusSuccess       Status = 0
	StatusMotorBusy     Status = 1
	StatusBadIndex      Status = 2
	StatusTableFull     Status = 3
	StatusBadPin        Status = 4
	StatusUnknownOpcode Status = 5
)

var statusText = map[Status]string{
	StatusSuccess:       "success",
	StatusMotorBusy:     "motor busy",
	StatusBadIndex:      "invalid motor index",
	StatusTableFull:     "motor table full",
	StatusBadPin:        "invalid pin",
	StatusUnknownOpcode: "unknown opcode",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("unrecognized status %d", byte(s))
}

// StatusError is a non-success status reported by the controller.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device: %s failed: %s", e.Op, e.Status)
}

func (e *StatusError) Is(target error) bool { return target == ErrDevice }
