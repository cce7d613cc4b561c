package backend

import (
	"log/slog"
	"sync/atomic"

	"github.com/smazurov/ledpd/internal/events"
)

// Device is the connected Wiimote contract: one combined command sets
// all four LED indicator flags (bits 0-3 of flags).
type Device interface {
	SetLEDs(flags byte) error
	Close() error
}

// hardwareLEDs is how many channels the Wiimote physically backs.
const hardwareLEDs = 4

// Wiimote drives the four LEDs of a Bluetooth-connected Wiimote.
//
// Unlike the gpio and sysfs backends it is stateful: commands touching
// only some channels must not disturb the rest, so the last-known state
// of all 32 channels is kept in a register. Bits 4-31 update the
// register but have no physical effect.
type Wiimote struct {
	dev    Device
	logger *slog.Logger
	bus    *events.Bus

	// Written only by the dispatch goroutine; atomic so the status API
	// can read it concurrently.
	register atomic.Uint32
}

// NewWiimote wraps an already-connected device. The register starts
// all-off.
func NewWiimote(dev Device, logger *slog.Logger, bus *events.Bus) *Wiimote {
	return &Wiimote{dev: dev, logger: logger, bus: bus}
}

// Name implements Backend.
func (w *Wiimote) Name() string { return "wiimote" }

// Channels implements Backend.
func (w *Wiimote) Channels() int { return hardwareLEDs }

// Register returns the last-known state of all 32 channels. After a
// failed device command this may diverge from the physical LEDs; no
// reconciliation is attempted.
func (w *Wiimote) Register() uint32 { return w.register.Load() }

// Apply folds the masked bits into the register, then sends one device
// command with the register's low four bits. A failed device command is
// logged and non-fatal; the register is not rolled back, favoring
// availability over state consistency.
func (w *Wiimote) Apply(mask, values uint32) error {
	reg := (w.register.Load() &^ mask) | (values & mask)
	w.register.Store(reg)

	flags := byte(reg & (1<<hardwareLEDs - 1))
	if err := w.dev.SetLEDs(flags); err != nil {
		w.logger.Warn("Couldn't send command to Wiimote", "error", err)
		if w.bus != nil {
			w.bus.Publish(events.DeviceErrorEvent{Backend: w.Name(), Error: err.Error()})
		}
	}
	return nil
}

// Close implements Backend.
func (w *Wiimote) Close() error {
	return w.dev.Close()
}
