package ledp

import (
	"fmt"
	"net"
)

// Client encodes and sends LEDP messages over a datagram connection.
//
// The client keeps a local mask/values pair so callers can stage
// per-channel changes with SetLED and push them with Commit. Because
// the protocol is fire-and-forget over UDP, Commit may be called
// repeatedly to resend the same message on lossy links.
type Client struct {
	conn   net.Conn
	mask   uint32
	values uint32
}

// Dial connects a client to host:port over UDP. Port 0 selects
// DefaultPort.
func Dial(host string, port int) (*Client, error) {
	if port == 0 {
		port = DefaultPort
	}
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("ledp: dial: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing datagram connection. The caller retains
// ownership of the connection's lifetime unless Close is used.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// SendRaw encodes and sends a single LEDP message with the supplied
// mask and values, independent of any staged state.
func (c *Client) SendRaw(mask, values uint32) error {
	if _, err := c.conn.Write(Encode(mask, values)); err != nil {
		return fmt.Errorf("ledp: send: %w", err)
	}
	return nil
}

// SetLED stages channel id to the given state. The change is not sent
// until Commit.
func (c *Client) SetLED(id int, on bool) {
	bit := uint32(1) << uint(id)
	c.mask |= bit
	if on {
		c.values |= bit
	} else {
		c.values &^= bit
	}
}

// ReleaseLED un-stages channel id; future commits leave it untouched.
func (c *Client) ReleaseLED(id int) {
	c.mask &^= uint32(1) << uint(id)
}

// Reset releases every channel, equivalent to constructing a fresh
// client on the same connection.
func (c *Client) Reset() {
	c.mask = 0
}

// Commit sends one LEDP message updating every channel touched via
// SetLED since the last Reset.
func (c *Client) Commit() error {
	return c.SendRaw(c.mask, c.values)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
