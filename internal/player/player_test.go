package player

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/device/devicetest"
	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/scheduler"
	"github.com/chase3718/motor-organ/internal/voice"
)

type fixture struct {
	port   *devicetest.Port
	voices []*voice.Voice
	player *Player
	log    *bytes.Buffer
}

// newFixture wires two stepper voices on channels 0 and 1 behind strategy.
func newFixture(t *testing.T, strategy scheduler.Strategy) *fixture {
	t.Helper()
	port := new(devicetest.Port).Respond(0)
	link, err := device.New(port)
	require.NoError(t, err)
	port.Reset()

	voices := []*voice.Voice{
		voice.New(link, 0, 0, voice.Spec{Kind: voice.Stepper}, nil),
		voice.New(link, 1, 1, voice.Spec{Kind: voice.Stepper}, nil),
	}
	cm, err := scheduler.NewChannelMap(voices, []uint8{0, 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sched, err := scheduler.New(strategy, cm, logger)
	require.NoError(t, err)

	return &fixture{
		port:   port,
		voices: voices,
		player: New(sched, scheduler.NewRegistry(voices, logger), logger, WithClock(instantClock{})),
		log:    &buf,
	}
}

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Unix(0, 0) }

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestHandleCounts(t *testing.T) {
	f := newFixture(t, scheduler.StrategyDirect)

	f.port.Respond(0)
	f.player.Handle(note.On(0, 60, 100))
	assert.Equal(t, []byte{0x00, 0x00, 0x07, 0x65}, f.port.Last())

	f.port.Respond(0)
	f.player.Handle(note.On(1, 60, 0))
	f.player.Handle(note.On(5, 60, 100))
	f.player.Handle(note.Event{Kind: note.NoteOn, Channel: 16, Pitch: 60})

	assert.Equal(t, Stats{Played: 2, Dropped: 1, Failed: 1}, f.player.Stats())
	assert.Contains(t, f.log.String(), "player: invalid event")
}

func TestHandleClassifiesFailures(t *testing.T) {
	f := newFixture(t, scheduler.StrategyDirect)

	f.player.Handle(note.On(0, 20, 100))
	assert.Empty(t, f.port.Writes())
	assert.Contains(t, f.log.String(), `kind="unsupported pitch"`)

	f.port.Respond(byte(device.StatusMotorBusy))
	f.player.Handle(note.On(0, 60, 100))
	assert.Contains(t, f.log.String(), "kind=device")

	f.port.Respond(0)
	f.player.Handle(note.On(0, 60, 100))
	f.player.Handle(note.On(0, 62, 100))
	assert.Contains(t, f.log.String(), "kind=busy")

	assert.Equal(t, Stats{Played: 1, Failed: 3}, f.player.Stats())
}

func TestUnresponsiveEscalates(t *testing.T) {
	f := newFixture(t, scheduler.StrategyDirect)

	for i := 0; i < UnresponsiveThreshold-1; i++ {
		f.player.Handle(note.On(0, 60, 100))
	}
	assert.NotContains(t, f.log.String(), "level=ERROR")

	f.player.Handle(note.On(0, 60, 100))
	assert.Contains(t, f.log.String(), "level=ERROR")
	assert.Contains(t, f.log.String(), "controller stopped responding")
	assert.Equal(t, UnresponsiveThreshold, f.player.Stats().Failed)
}

func TestUnresponsiveCounterResets(t *testing.T) {
	f := newFixture(t, scheduler.StrategyDirect)

	f.player.Handle(note.On(0, 60, 100))
	f.player.Handle(note.On(0, 60, 100))
	f.port.Respond(0, 0)
	f.player.Handle(note.On(0, 60, 100))
	f.player.Handle(note.Off(0, 60))
	f.player.Handle(note.On(0, 60, 100))
	f.player.Handle(note.On(0, 60, 100))

	assert.Equal(t, 4, strings.Count(f.log.String(), "kind=unresponsive"))
	assert.NotContains(t, f.log.String(), "level=ERROR")
	assert.Equal(t, Stats{Played: 2, Failed: 4}, f.player.Stats())
}

func TestSilence(t *testing.T) {
	f := newFixture(t, scheduler.StrategyRoundRobin)

	f.port.Respond(0, 0)
	f.player.Handle(note.On(0, 60, 100))
	f.player.Handle(note.On(1, 64, 100))
	require.False(t, f.voices[0].Idle())
	require.False(t, f.voices[1].Idle())

	f.port.Reset()
	f.port.Respond(0, 0)
	assert.Equal(t, 2, f.player.Silence())
	assert.True(t, f.voices[0].Idle())
	assert.True(t, f.voices[1].Idle())
	assert.Equal(t, [][]byte{{0x01, 0}, {0x01, 1}}, f.port.Writes())

	// Routing memory is gone, so this note-off reaches nobody.
	f.port.Reset()
	f.player.Handle(note.Off(0, 60))
	assert.Empty(t, f.port.Writes())
}

func TestPlay(t *testing.T) {
	f := newFixture(t, scheduler.StrategyDirect)
	f.port.Respond(0, 0)

	err := f.player.Play(context.Background(), []note.Timed{
		{Event: note.On(0, 60, 100)},
		{Event: note.Off(0, 60), Wait: 500 * time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.player.Stats().Played)
	assert.True(t, f.voices[0].Idle())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = f.player.Play(ctx, []note.Timed{{Event: note.On(0, 60, 100)}})
	assert.ErrorIs(t, err, context.Canceled)
}
