package scheduler

import (
	"io"
	"log/slog"

	"github.com/chase3718/motor-organ/internal/voice"
)

// Registry owns the registered voices for the lifetime of a run. It is the
// only list teardown walks.
type Registry struct {
	voices []*voice.Voice
	logger *slog.Logger
}

// Register adds every motor to the controller in order. It stops at the
// first failure; a run must not continue with a motor missing.
func Register(link voice.Registrar, specs []voice.Spec, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	for i, spec := range specs {
		v, err := voice.Register(link, i, spec, logger)
		if err != nil {
			return nil, err
		}
		r.voices = append(r.voices, v)
	}
	return r, nil
}

// NewRegistry wraps voices that are already registered.
func NewRegistry(voices []*voice.Voice, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{voices: voices, logger: logger}
}

// Voices returns the voices in configuration order.
func (r *Registry) Voices() []*voice.Voice { return r.voices }

// Silence stops every sounding voice. Failures are logged and skipped; it
// returns how many voices were stopped.
func (r *Registry) Silence() int {
	stopped := 0
	for _, v := range r.voices {
		if v.Idle() {
			continue
		}
		if err := v.Stop(); err != nil {
			r.logger.Warn("registry: stop failed during teardown", "voice", v.ID(), "err", err)
			continue
		}
		stopped++
	}
	if stopped > 0 {
		r.logger.Info("registry: voices silenced", "count", stopped)
	}
	return stopped
}

// Session runs fn and then, however fn ends, silences the registry and closes
// the transport. A panic in fn still gets the teardown before propagating.
func Session(transport io.Closer, r *Registry, fn func() error) (err error) {
	defer func() {
		if r != nil {
			r.Silence()
		}
		if cerr := transport.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}
