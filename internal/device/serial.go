package device

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialConfig describes how to open the controller's serial line.
type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
	// BootDelay is how long to wait after opening. Opening the port resets
	// most Arduino-style boards and they drop bytes until the bootloader exits.
	BootDelay time.Duration
}

// OpenSerial opens the named serial device and applies the read timeout that
// bounds every response the Link waits for.
func OpenSerial(cfg SerialConfig, logger *slog.Logger) (Port, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p, err := serial.Open(cfg.Name, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, errors.Wrapf(err, "serial: open %s", cfg.Name)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "serial: set read timeout")
	}
	logger.Info("serial: port opened", "device", cfg.Name, "baud", cfg.Baud, "read_timeout", cfg.ReadTimeout)

	if cfg.BootDelay > 0 {
		logger.Debug("serial: waiting for controller boot", "delay", cfg.BootDelay)
		time.Sleep(cfg.BootDelay)
	}
	if err := p.ResetInputBuffer(); err != nil {
		logger.Warn("serial: could not flush input", "err", err)
	}
	return p, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "serial: list ports")
	}
	return ports, nil
}
