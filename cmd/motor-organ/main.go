// Command motor-organ plays MIDI on stepper motors and floppy drives driven by
// a microcontroller on a serial line.
//
//	motor-organ [-config motor-organ.yaml] [-dry-run] song.mid
//	motor-organ -live [-midi-in Launchkey,Novation]
//	motor-organ -list
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/chase3718/motor-organ/internal/config"
	"github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/logging"
	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/player"
	"github.com/chase3718/motor-organ/internal/scheduler"
	"github.com/chase3718/motor-organ/internal/source"
)

type options struct {
	configPath string
	debug      bool
	dryRun     bool
	live       bool
	midiIn     string
	list       bool
	song       string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", config.DefaultPath, "motor configuration file")
	flag.BoolVar(&o.debug, "debug", false, "enable debug logging (adds source location)")
	flag.BoolVar(&o.dryRun, "dry-run", false, "play against an in-process controller instead of the serial port")
	flag.BoolVar(&o.live, "live", false, "play from a live MIDI input instead of a file")
	flag.StringVar(&o.midiIn, "midi-in", "Launchkey,Novation", "comma-separated MIDI input name patterns to prefer")
	flag.BoolVar(&o.list, "list", false, "list serial ports and MIDI inputs, then exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] song.mid\n       %s -live [flags]\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logging.Init(o.debug, os.Stderr)

	if o.list {
		listDevices(os.Stdout, logger)
		return
	}
	switch {
	case o.live && flag.NArg() != 0:
		logger.Error("a song file cannot be combined with -live")
		os.Exit(2)
	case !o.live && flag.NArg() != 1:
		flag.Usage()
		os.Exit(2)
	}
	o.song = flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Error("motor-organ failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger *slog.Logger) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	// Read the song before touching the hardware so a bad file costs nothing.
	var events []note.Timed
	if !o.live {
		if events, err = source.ReadFile(o.song); err != nil {
			return err
		}
	}

	logger.Info("motor-organ starting",
		"config", o.configPath,
		"motors", len(cfg.Motors),
		"scheduler", cfg.Scheduler,
		"dry_run", o.dryRun,
		"live", o.live,
	)

	port, err := openPort(cfg, o.dryRun, logger)
	if err != nil {
		return err
	}
	link, err := device.New(port, device.WithLogger(logger))
	if err != nil {
		_ = port.Close()
		return err
	}

	reg, err := scheduler.Register(link, cfg.Specs(), logger)
	if err != nil {
		_ = link.Close()
		return err
	}
	return scheduler.Session(link, reg, func() error {
		cm, err := scheduler.NewChannelMap(reg.Voices(), cfg.Channels())
		if err != nil {
			return err
		}
		sched, err := scheduler.New(cfg.Strategy(), cm, logger)
		if err != nil {
			return err
		}
		p := player.New(sched, reg, logger)
		defer p.LogStats()

		if o.live {
			return playLive(ctx, p, o.midiIn, logger)
		}
		err = p.Play(ctx, events)
		if errors.Is(err, context.Canceled) {
			logger.Info("motor-organ interrupted")
			return nil
		}
		return err
	})
}

func openPort(cfg *config.Config, dryRun bool, logger *slog.Logger) (device.Port, error) {
	if dryRun {
		logger.Info("device: dry run, no serial port opened")
		return device.NewLoopback(logger), nil
	}
	return device.OpenSerial(cfg.SerialConfig(), logger)
}

func playLive(ctx context.Context, p *player.Player, patterns string, logger *slog.Logger) error {
	onDisconnect := func() {
		logger.Warn("midi: disconnect, silencing all motors")
		n := p.Silence()
		logger.Info("midi: motors silenced", "count", n)
	}
	w, err := source.NewWatcher(splitPatterns(patterns), p.Handle, onDisconnect, logger)
	if err != nil {
		return errors.Wrap(err, "midi watcher init")
	}
	logger.Info("running, waiting for MIDI device")
	w.Run(ctx)
	return nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func listDevices(w io.Writer, logger *slog.Logger) {
	ports, err := device.ListPorts()
	if err != nil {
		logger.Error("listing serial ports failed", "err", err)
	}
	fmt.Fprintln(w, "serial ports:")
	for _, p := range ports {
		fmt.Fprintf(w, "  %s\n", p)
	}

	inputs, err := source.ListInputs()
	if err != nil {
		logger.Error("listing MIDI inputs failed", "err", err)
	}
	fmt.Fprintln(w, "midi inputs:")
	for _, in := range inputs {
		fmt.Fprintf(w, "  %s\n", in)
	}
}
