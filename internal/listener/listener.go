// Package listener owns the LEDP UDP socket and the receive-dispatch
// loop.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/smazurov/ledpd/internal/backend"
	"github.com/smazurov/ledpd/internal/events"
	"github.com/smazurov/ledpd/internal/ledp"
)

// readPollInterval bounds how long a blocked read can delay noticing
// context cancellation.
const readPollInterval = 100 * time.Millisecond

// Config contains configuration options for the listener.
type Config struct {
	// Port is the UDP port to bind. Zero binds an ephemeral port;
	// callers wanting the protocol default pass ledp.DefaultPort.
	Port int

	// Backend receives every accepted command.
	Backend backend.Backend

	// Bus receives packet and apply events; optional.
	Bus *events.Bus

	Logger *slog.Logger
}

// Listener receives LEDP datagrams and applies them to the backend.
//
// Dispatch is strictly sequential: one datagram is fully processed —
// decoded and all device writes completed — before the next is read.
// There is no queue, no acknowledgment path, and no retry.
type Listener struct {
	port    int
	backend backend.Backend
	bus     *events.Bus
	logger  *slog.Logger
	conn    *net.UDPConn
}

// New creates a listener from the configuration.
func New(config Config) *Listener {
	return &Listener{
		port:    config.Port,
		backend: config.Backend,
		bus:     config.Bus,
		logger:  config.Logger,
	}
}

// popcount32 counts set bits; used only for event reporting.
func popcount32(v uint32) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Bind opens the wildcard UDP socket. Failure here is fatal at startup;
// the service must not come up half-bound.
func (l *Listener) Bind() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: l.port})
	if err != nil {
		return fmt.Errorf("listener: bind port %d: %w", l.port, err)
	}
	l.conn = conn
	return nil
}

// Start runs the receive loop until the context is cancelled, binding
// first if Bind was not called. Only cancellation or a backend apply
// error ends the loop; bad input never does.
func (l *Listener) Start(ctx context.Context) error {
	if l.conn == nil {
		if err := l.Bind(); err != nil {
			return err
		}
	}
	conn := l.conn
	defer conn.Close()

	l.logger.Info("LEDP listener started",
		"port", l.port, "backend", l.backend.Name(), "channels", l.backend.Channels())

	// One datagram's worth plus margin, so oversized packets are read
	// whole and rejected on length rather than silently truncated.
	buffer := make([]byte, 64)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("LEDP listener stopping")
			return nil
		default:
		}

		// Bounded read so cancellation is noticed between datagrams.
		conn.SetReadDeadline(time.Now().Add(readPollInterval))

		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				l.logger.Info("LEDP listener stopping")
				return nil
			}
			l.logger.Warn("UDP read error", "error", err)
			continue
		}

		if err := l.handlePacket(buffer[:n]); err != nil {
			// A backend error is fatal by contract; the wiimote backend
			// never returns one.
			l.logger.Error("Backend apply failed", "peer", addr.String(), "error", err)
			return err
		}
	}
}

// handlePacket decodes one datagram and, if valid, applies it
// synchronously. Rejected datagrams are dropped without a reply.
func (l *Listener) handlePacket(packet []byte) error {
	cmd, err := ledp.Decode(packet)
	if err != nil {
		l.logger.Debug("Dropping packet", "bytes", len(packet), "reason", err)
		if l.bus != nil {
			reason := "length"
			if len(packet) == ledp.PacketSize {
				reason = "version"
			}
			l.bus.Publish(events.PacketDroppedEvent{Reason: reason, Bytes: len(packet)})
		}
		return nil
	}

	if err := l.backend.Apply(cmd.Mask, cmd.Values); err != nil {
		return err
	}

	if l.bus != nil {
		l.bus.Publish(events.CommandAppliedEvent{
			Backend:  l.backend.Name(),
			Mask:     cmd.Mask,
			Values:   cmd.Values,
			Channels: popcount32(cmd.Mask),
		})
	}
	return nil
}

// LocalAddr returns the bound address, or nil before Bind. Useful when
// binding port 0.
func (l *Listener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}
