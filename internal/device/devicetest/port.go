// Package devicetest provides a scripted serial port for tests.
package devicetest

import (
	"bytes"
	"sync"
)

// Port records every Write and answers Reads from a scripted response
// buffer. When the script runs dry Read returns 0, nil, which a Link treats
// as a timeout.
type Port struct {
	mu       sync.Mutex
	resp     bytes.Buffer
	writes   [][]byte
	WriteErr error
	Closed   bool
}

// Respond queues bytes for subsequent Reads.
func (p *Port) Respond(b ...byte) *Port {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resp.Write(b)
	return p
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resp.Len() == 0 {
		return 0, nil
	}
	return p.resp.Read(b)
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Writes returns a copy of every Write so far, one entry per call.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Last returns the most recent Write, or nil.
func (p *Port) Last() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 {
		return nil
	}
	return p.writes[len(p.writes)-1]
}

// Reset forgets recorded writes.
func (p *Port) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = nil
}
