// Package backend translates decoded LEDP commands into device-specific
// writes. The set of backends is closed: a GPIO control file, the sysfs
// LED class tree, a Bluetooth Wiimote, and a no-op fallback for hosts
// without any of those.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/ledpd/internal/events"
)

// Backend applies a command to a fixed set of channels. Implementations
// visit selected channels in ascending index order and own their device
// handles for the life of the process.
//
// An error returned from Apply is fatal to the service; backends that
// tolerate device failures (wiimote) handle them internally and return
// nil.
type Backend interface {
	// Name identifies the backend ("gpio", "sysfs", "wiimote", "noop").
	Name() string

	// Channels returns how many channels have hardware backing.
	Channels() int

	// Apply realizes the desired state for every channel whose mask bit
	// is set: bit i of values gives channel i's state.
	Apply(mask, values uint32) error

	// Close releases device handles at shutdown.
	Close() error
}

// Config selects and parameterizes a backend at startup.
type Config struct {
	// Kind is one of "gpio", "sysfs", "wiimote", "noop".
	Kind string

	// GPIOControlFile is the gpio backend's control file path.
	GPIOControlFile string

	// SysfsLEDPath is the sysfs backend's LED class directory.
	SysfsLEDPath string

	// WiimoteAddress is the Bluetooth device address for the wiimote
	// backend; empty means connect to the nearest available Wiimote.
	WiimoteAddress string
}

// Opener connects a wiimote device; wired in by the caller so this
// package stays free of Bluetooth details.
type Opener func(address string) (Device, error)

// Open constructs the configured backend. All open/connect failures are
// returned to the caller, which treats them as fatal.
func Open(cfg Config, logger *slog.Logger, bus *events.Bus, connect Opener) (Backend, error) {
	switch cfg.Kind {
	case "gpio":
		return NewGPIO(cfg.GPIOControlFile, logger)
	case "sysfs":
		return NewSysfs(cfg.SysfsLEDPath, logger)
	case "wiimote":
		if connect == nil {
			return nil, fmt.Errorf("backend: wiimote support not wired in")
		}
		dev, err := connect(cfg.WiimoteAddress)
		if err != nil {
			return nil, err
		}
		return NewWiimote(dev, logger, bus), nil
	case "noop":
		return NewNoop(logger), nil
	default:
		return nil, fmt.Errorf("backend: unknown kind %q", cfg.Kind)
	}
}
