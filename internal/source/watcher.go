package source

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/chase3718/motor-organ/internal/note"
)

// ExcludedPatterns name virtual or system ports that are never auto-connected.
var ExcludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// RescanInterval is how often Run looks for inputs appearing or vanishing.
const RescanInterval = time.Second

// conn is an open, listening input.
type conn struct {
	name string
	in   drivers.In
	stop func()
}

func (c *conn) close() {
	if c.stop != nil {
		c.stop()
	}
	if c.in != nil {
		_ = c.in.Close()
	}
}

// Watcher keeps one live MIDI input connected and forwards its note events.
// It picks an input with PickPreferred, and when that input goes away it
// drops the connection, reports the loss and waits for the next one.
//
// onEvent runs on the driver's listener goroutine. onDisconnect runs on its
// own goroutine; Close waits for any that are still running, so after Close
// returns no callback is in flight.
type Watcher struct {
	Preferred []string

	mu     sync.Mutex
	drv    *rtmididrv.Driver
	ins    func() ([]drivers.In, error)
	cur    *conn
	logger *slog.Logger

	onEvent      func(note.Event)
	onDisconnect func()
	callbacks    sync.WaitGroup
}

// NewWatcher initialises the rtmidi driver. Call Close when done.
func NewWatcher(preferred []string, onEvent func(note.Event), onDisconnect func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "rtmididrv")
	}
	return &Watcher{
		Preferred:    preferred,
		drv:          drv,
		ins:          drv.Ins,
		logger:       logger,
		onEvent:      onEvent,
		onDisconnect: onDisconnect,
	}, nil
}

// Run scans once immediately and then every RescanInterval until ctx is done.
// It closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(RescanInterval)
	defer ticker.Stop()
	defer w.Close()

	for {
		w.Tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close drops the connection, shuts the driver down and waits for pending
// disconnect callbacks.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.cur != nil {
		w.cur.close()
		w.cur = nil
	}
	if w.drv != nil {
		w.drv.Close()
		w.drv = nil
	}
	w.ins = nil
	w.mu.Unlock()
	w.callbacks.Wait()
}

// Connected returns the name of the connected input, if any.
func (w *Watcher) Connected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return "", false
	}
	return w.cur.name, true
}

// Tick does one scan: it notices the connected input vanishing, or connects
// to a candidate when nothing is connected.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ins == nil {
		return
	}
	ins, err := w.ins()
	if err != nil {
		w.logger.Error("midi: list inputs failed", "err", err)
		return
	}
	byName := make(map[string]drivers.In, len(ins))
	for _, in := range ins {
		byName[in.String()] = in
	}
	names := FilterInputs(portNames(ins))

	if w.cur != nil {
		if _, ok := byName[w.cur.name]; !ok {
			w.dropLocked("device disappeared")
		}
		return
	}
	name, ok := PickPreferred(names, w.Preferred)
	if !ok {
		w.logger.Debug("midi: no input to connect", "available", strings.Join(names, ", "))
		return
	}
	c, err := w.listen(name, byName[name])
	if err != nil {
		w.logger.Error("midi: connect failed", "device", name, "err", err)
		return
	}
	w.cur = c
	w.logger.Info("midi: connected", "device", name)
}

// dropLocked closes the current connection and schedules onDisconnect.
// Callers hold w.mu.
func (w *Watcher) dropLocked(reason string) {
	w.logger.Warn("midi: input lost", "device", w.cur.name, "reason", reason)
	w.cur.close()
	w.cur = nil
	if w.onDisconnect == nil {
		return
	}
	w.callbacks.Add(1)
	go func() {
		defer w.callbacks.Done()
		w.onDisconnect()
	}()
}

func (w *Watcher) listen(name string, in drivers.In) (*conn, error) {
	if err := in.Open(); err != nil {
		return nil, errors.Wrapf(err, "open %q", name)
	}
	c := &conn{name: name, in: in}
	stop, err := midi.ListenTo(in, w.receive, midi.HandleError(func(err error) {
		// The stop func must not run on the listener goroutine.
		go w.listenFailed(c, err)
	}))
	if err != nil {
		_ = in.Close()
		return nil, errors.Wrapf(err, "listen %q", name)
	}
	c.stop = stop
	return c, nil
}

func (w *Watcher) receive(msg midi.Message, _ int32) {
	if ev, ok := FromMessage(msg); ok {
		w.onEvent(ev)
		return
	}
	w.logger.Debug("midi: unhandled message", "msg", msg.String())
}

func (w *Watcher) listenFailed(c *conn, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == c {
		w.dropLocked(err.Error())
	}
}

// ListInputs returns the usable MIDI input names on the system.
func ListInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "rtmididrv")
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "midi: list inputs")
	}
	return FilterInputs(portNames(ins)), nil
}

func portNames(ins []drivers.In) []string {
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// FilterInputs drops names matching ExcludedPatterns.
func FilterInputs(names []string) []string {
	var out []string
	for _, name := range names {
		if !matchesAny(name, ExcludedPatterns) {
			out = append(out, name)
		}
	}
	return out
}

// PickPreferred returns the first input matching a preferred pattern, in
// pattern order, or the only input when there is exactly one.
func PickPreferred(inputs, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if matchesAny(name, []string{pat}) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

// matchesAny is a case-insensitive substring match against patterns.
func matchesAny(name string, patterns []string) bool {
	name = strings.ToLower(name)
	for _, pat := range patterns {
		if strings.Contains(name, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
