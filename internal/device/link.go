// Package device speaks the binary motor-controller protocol over a serial
// line.
package device

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// Port is the byte-stream transport under a Link. A Read that returns no
// bytes and no error is a timeout, which is how go.bug.st/serial reports an
// expired read deadline.
type Port interface {
	io.ReadWriteCloser
}

// Link is a session with the motor controller. It serialises commands so
// that each request and its response form one unit on the wire.
type Link struct {
	mu     sync.Mutex
	port   Port
	logger *slog.Logger
	closed bool
}

// Option configures a Link.
type Option func(*Link)

// WithLogger sets the logger used for frame tracing.
func WithLogger(l *slog.Logger) Option {
	return func(k *Link) {
		if l != nil {
			k.logger = l
		}
	}
}

// New starts a session on an open port. The controller's motor table is
// wiped before New returns; a failed wipe is returned and the port is left
// open for the caller to close.
func New(port Port, opts ...Option) (*Link, error) {
	k := &Link{port: port, logger: slog.Default()}
	for _, opt := range opts {
		opt(k)
	}
	if err := k.Wipe(); err != nil {
		return nil, errors.Wrap(err, "device: initial wipe")
	}
	return k, nil
}

// Wipe clears the controller's motor table. Every Index handed out before
// is invalid afterwards.
func (k *Link) Wipe() error {
	_, err := k.roundTrip(wipeCmd())
	return err
}

// Add registers a motor and returns the index the controller assigned.
func (k *Link) Add(stepPin, dirPin byte, flags Flags) (Index, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, err := k.exchange(addCmd(stepPin, dirPin, flags)); err != nil {
		return 0, err
	}
	var idx [1]byte
	if err := k.readExact(idx[:]); err != nil {
		return 0, errors.Wrap(err, "device: ADD index")
	}
	k.logger.Debug("device: motor added", "step_pin", stepPin, "dir_pin", dirPin, "flags", fmt.Sprintf("%#02x", byte(flags)), "index", idx[0])
	return Index(idx[0]), nil
}

// Play starts the motor stepping at the given delay. The controller does not
// answer Play.
func (k *Link) Play(idx Index, delay uint16) error {
	_, err := k.roundTrip(playCmd(idx, delay))
	return err
}

// Stop silences the motor. The controller does not answer Stop.
func (k *Link) Stop(idx Index) error {
	_, err := k.roundTrip(stopCmd(idx))
	return err
}

// Reset homes the motor.
func (k *Link) Reset(idx Index) error {
	_, err := k.roundTrip(resetCmd(idx))
	return err
}

// Close releases the transport. It is safe to call more than once.
func (k *Link) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	k.logger.Info("device: closing link")
	return k.port.Close()
}

func (k *Link) roundTrip(c command) (Status, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.exchange(c)
}

// exchange writes c and, if c expects an answer, reads and checks the status
// byte. Callers hold k.mu.
func (k *Link) exchange(c command) (Status, error) {
	name := opName(c.op)
	if k.closed {
		return 0, errors.Errorf("device: %s on closed link", name)
	}
	data := c.Encode()
	if _, err := k.port.Write(data); err != nil {
		return 0, errors.Wrapf(err, "device: write %s", name)
	}
	k.logger.Debug("device: frame sent", "op", name, "bytes", fmt.Sprintf("% x", data))
	if c.resp == 0 {
		return StatusSuccess, nil
	}

	var resp [1]byte
	if err := k.readExact(resp[:]); err != nil {
		return 0, errors.Wrapf(err, "device: %s status", name)
	}
	st := Status(resp[0])
	if st != StatusSuccess {
		return st, &StatusError{Op: name, Status: st}
	}
	return st, nil
}

// readExact fills buf or fails with ErrUnresponsive. A zero-length read is
// the port's read timeout expiring.
func (k *Link) readExact(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := k.port.Read(buf[got:])
		got += n
		if got == len(buf) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: got %d of %d bytes: %v", ErrUnresponsive, got, len(buf), err)
		}
		if n == 0 {
			return fmt.Errorf("%w: timed out after %d of %d bytes", ErrUnresponsive, got, len(buf))
		}
	}
	return nil
}
