// Package config loads the motor and serial configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chase3718/motor-organ/internal/delay"
	"github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/scheduler"
	"github.com/chase3718/motor-organ/internal/voice"
)

// DefaultPath is where the player looks when no -config is given.
const DefaultPath = "motor-organ.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	TypeStepper = "stepper"
	TypeFloppy  = "floppy"
)

// Config is the whole configuration file.
type Config struct {
	Serial    Serial  `yaml:"serial"`
	Scheduler string  `yaml:"scheduler"`
	Motors    []Motor `yaml:"motors"`
	Remap     []Remap `yaml:"remap,omitempty"`
}

// Serial describes the link to the controller.
type Serial struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	BootDelay   time.Duration `yaml:"boot_delay"`
}

// Motor declares one motor. DirPin is only meaningful for floppy drives.
type Motor struct {
	Type      string `yaml:"type"`
	StepPin   int    `yaml:"step_pin"`
	DirPin    *int   `yaml:"dir_pin,omitempty"`
	Transpose bool   `yaml:"transpose"`
	Octaves   []int  `yaml:"octaves,omitempty"`
	NoReset   bool   `yaml:"no_reset,omitempty"`
}

// Remap moves a voice off its default channel (its own index).
type Remap struct {
	Voice   int `yaml:"voice"`
	Channel int `yaml:"channel"`
}

// Default returns the configuration every file is decoded on top of.
func Default() *Config {
	return &Config{
		Serial: Serial{
			Port:        "/dev/ttyACM0",
			Baud:        115200,
			ReadTimeout: time.Second,
			BootDelay:   2 * time.Second,
		},
		Scheduler: string(scheduler.StrategyDirect),
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "config: read")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "config: %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Serial.Port == "" {
		bad("serial.port is empty")
	}
	if c.Serial.Baud <= 0 {
		bad("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout <= 0 {
		bad("serial.read_timeout must be positive, got %s", c.Serial.ReadTimeout)
	}
	if c.Serial.BootDelay < 0 {
		bad("serial.boot_delay is negative")
	}
	switch scheduler.Strategy(c.Scheduler) {
	case scheduler.StrategyDirect, scheduler.StrategyRoundRobin:
	default:
		bad("unknown scheduler %q", c.Scheduler)
	}

	if len(c.Motors) == 0 {
		bad("no motors configured")
	}
	for i, m := range c.Motors {
		switch m.Type {
		case TypeStepper:
			if m.DirPin != nil {
				bad("motor %d: dir_pin is only used by floppy drives", i)
			}
		case TypeFloppy:
			if m.DirPin == nil {
				bad("motor %d: floppy drive needs dir_pin", i)
			} else if !pinOK(*m.DirPin) {
				bad("motor %d: dir_pin %d out of range", i, *m.DirPin)
			}
		default:
			bad("motor %d: unknown type %q", i, m.Type)
		}
		if !pinOK(m.StepPin) {
			bad("motor %d: step_pin %d out of range", i, m.StepPin)
		}
		for _, o := range m.Octaves {
			if o < 0 || o >= delay.NumOctaves {
				bad("motor %d: octave %d out of range 0..%d", i, o, delay.NumOctaves-1)
			}
		}
	}

	remapped := make(map[int]bool, len(c.Remap))
	for _, r := range c.Remap {
		if r.Voice < 0 || r.Voice >= len(c.Motors) {
			bad("remap: voice %d out of range", r.Voice)
			continue
		}
		if remapped[r.Voice] {
			bad("remap: voice %d remapped twice", r.Voice)
		}
		remapped[r.Voice] = true
		if r.Channel < 0 || r.Channel >= note.NumChannels {
			bad("remap: voice %d to channel %d out of range 0..%d", r.Voice, r.Channel, note.NumChannels-1)
		}
	}
	for i := note.NumChannels; i < len(c.Motors); i++ {
		if !remapped[i] {
			bad("motor %d has no channel, add a remap entry", i)
		}
	}

	return errors.Join(errs...)
}

func pinOK(p int) bool { return p >= 0 && p <= 255 }

// Strategy is the configured scheduler.
func (c *Config) Strategy() scheduler.Strategy { return scheduler.Strategy(c.Scheduler) }

// SerialConfig converts the serial section for device.OpenSerial.
func (c *Config) SerialConfig() device.SerialConfig {
	return device.SerialConfig{
		Name:        c.Serial.Port,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
		BootDelay:   c.Serial.BootDelay,
	}
}

// Specs converts the motor list, in order, to voice specs. The config must
// be valid.
func (c *Config) Specs() []voice.Spec {
	specs := make([]voice.Spec, len(c.Motors))
	for i, m := range c.Motors {
		s := voice.Spec{
			StepPin:   byte(m.StepPin),
			Transpose: m.Transpose,
			Octaves:   delay.Octaves(m.Octaves...),
			NoReset:   m.NoReset,
		}
		if m.Type == TypeFloppy {
			s.Kind = voice.Floppy
			s.DirPin = byte(*m.DirPin)
		}
		specs[i] = s
	}
	return specs
}

// Channels returns the channel each voice listens on: its own index unless
// remapped. The config must be valid.
func (c *Config) Channels() []uint8 {
	ch := make([]uint8, len(c.Motors))
	for i := range ch {
		ch[i] = uint8(i)
	}
	for _, r := range c.Remap {
		ch[r.Voice] = uint8(r.Channel)
	}
	return ch
}
