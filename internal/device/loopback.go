package device

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
)

// commandLen is the full length of each command, opcode included.
var commandLen = map[byte]int{
	OpPlay:  4,
	OpStop:  2,
	OpReset: 2,
	OpWipe:  1,
	OpAdd:   4,
}

// Loopback is a Port that emulates the controller in-process. It accepts
// every command, hands out sequential motor indices and logs what a real
// controller would do. Used for dry runs.
type Loopback struct {
	mu      sync.Mutex
	logger  *slog.Logger
	in      []byte
	out     bytes.Buffer
	motors  int
	playing map[byte]uint16
	closed  bool
}

func NewLoopback(logger *slog.Logger) *Loopback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loopback{logger: logger, playing: make(map[byte]uint16)}
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, io.ErrClosedPipe
	}
	l.in = append(l.in, p...)
	for len(l.in) > 0 {
		n, ok := commandLen[l.in[0]]
		if !ok {
			l.logger.Warn("loopback: unknown opcode", "op", l.in[0])
			l.out.WriteByte(byte(StatusUnknownOpcode))
			l.in = l.in[:0]
			break
		}
		if len(l.in) < n {
			break
		}
		l.apply(l.in[:n])
		l.in = l.in[n:]
	}
	return len(p), nil
}

func (l *Loopback) apply(c []byte) {
	switch c[0] {
	case OpWipe:
		l.motors = 0
		l.playing = make(map[byte]uint16)
		l.logger.Info("loopback: motor table wiped")
		l.out.WriteByte(byte(StatusSuccess))
	case OpAdd:
		idx := byte(l.motors)
		l.motors++
		l.logger.Info("loopback: motor added", "index", idx, "step_pin", c[1], "dir_pin", c[2], "flags", c[3])
		l.out.Write([]byte{byte(StatusSuccess), idx})
	case OpReset:
		if int(c[1]) >= l.motors {
			l.out.WriteByte(byte(StatusBadIndex))
			return
		}
		l.logger.Debug("loopback: motor reset", "index", c[1])
		l.out.WriteByte(byte(StatusSuccess))
	case OpPlay:
		d := binary.BigEndian.Uint16(c[2:])
		l.playing[c[1]] = d
		l.logger.Info("loopback: PLAY", "index", c[1], "delay", d)
	case OpStop:
		delete(l.playing, c[1])
		l.logger.Info("loopback: STOP", "index", c[1])
	}
}

// Read returns queued responses. With nothing queued it returns 0, nil like
// a serial read that timed out.
func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out.Len() == 0 {
		return 0, nil
	}
	return l.out.Read(p)
}

// Sounding reports the motors the loopback believes are stepping and their
// delays.
func (l *Loopback) Sounding() map[byte]uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[byte]uint16, len(l.playing))
	for k, v := range l.playing {
		out[k] = v
	}
	return out
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
