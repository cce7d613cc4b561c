// Package wiimote connects to a Nintendo Wiimote over Bluetooth and
// exposes its four LED indicators.
//
// Discovery goes through BlueZ's D-Bus API; the HID transport is a raw
// L2CAP socket on the interrupt channel, which is how the Wiimote
// predates the BlueZ HID profile. The only output used here is report
// 0x11, whose upper nibble carries the four LED flags.
package wiimote

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// psmInterrupt is the L2CAP PSM of the HID interrupt channel.
	psmInterrupt = 0x13

	// hidOutputPrefix marks a HID output report on the data pipe.
	hidOutputPrefix = 0xA2

	// reportLEDs is the Wiimote's LED/rumble output report.
	reportLEDs = 0x11
)

// Address is a Bluetooth device address.
type Address [6]byte

// ParseAddress parses "AA:BB:CC:DD:EE:FF". The zero Address means "any
// device" and is what an empty string parses to.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if s == "" {
		return addr, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("wiimote: invalid bluetooth address %q", s)
	}
	for i, part := range parts {
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil || len(part) != 2 {
			return addr, fmt.Errorf("wiimote: invalid bluetooth address %q", s)
		}
		addr[i] = byte(b)
	}
	return addr, nil
}

// IsZero reports whether the address is the wildcard.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a[0], a[1], a[2], a[3], a[4], a[5])
}

// sockaddr converts to the kernel's little-endian byte order.
func (a Address) sockaddr() [6]uint8 {
	var out [6]uint8
	for i := 0; i < 6; i++ {
		out[i] = a[5-i]
	}
	return out
}

// Wiimote is a connected device. All methods are called from the single
// dispatch goroutine; no locking.
type Wiimote struct {
	fd     int
	addr   Address
	logger *slog.Logger
}

// Connect opens the HID interrupt channel to the device at addr. When
// addr is the wildcard, the nearest known Wiimote is discovered via
// BlueZ first. Connection failure is returned to the caller (fatal at
// startup).
func Connect(addr Address, logger *slog.Logger) (*Wiimote, error) {
	if addr.IsZero() {
		found, err := Discover(logger)
		if err != nil {
			return nil, err
		}
		addr = found
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, fmt.Errorf("wiimote: l2cap socket: %w", err)
	}

	sa := &unix.SockaddrL2{
		PSM:  psmInterrupt,
		Addr: addr.sockaddr(),
	}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("wiimote: connect %s: %w", addr, err)
	}

	logger.Info("Connected to Wiimote", "address", addr.String())
	return &Wiimote{fd: fd, addr: addr, logger: logger}, nil
}

// Address returns the connected device's address.
func (w *Wiimote) Address() Address { return w.addr }

// SetLEDs sends one combined LED command. Bits 0-3 of flags map to
// LED1-LED4; the report carries them in its upper nibble.
func (w *Wiimote) SetLEDs(flags byte) error {
	report := []byte{hidOutputPrefix, reportLEDs, (flags & 0x0F) << 4}
	n, err := unix.Write(w.fd, report)
	if err != nil {
		return fmt.Errorf("wiimote: send LED report: %w", err)
	}
	if n != len(report) {
		return fmt.Errorf("wiimote: short LED report: %d of %d bytes", n, len(report))
	}
	return nil
}

// Close disconnects the device.
func (w *Wiimote) Close() error {
	return unix.Close(w.fd)
}
