// Package ledp implements the LEDP wire protocol: a one-way UDP
// protocol for toggling up to 32 addressable output channels.
//
// A datagram is exactly 9 bytes: a one-byte protocol version followed
// by two big-endian 32-bit fields. Bit i of the mask selects channel i;
// bit i of the values field gives the desired state for a selected
// channel. Value bits outside the mask carry no meaning.
package ledp

import (
	"encoding/binary"
	"fmt"
)

const (
	// Version is the only protocol version this implementation accepts.
	Version = 1

	// PacketSize is the exact length of every LEDP datagram.
	PacketSize = 9

	// DefaultPort is the UDP port LEDP servers listen on by default.
	DefaultPort = 5021

	// MaxChannels is the channel capacity fixed by the 32-bit wire fields.
	MaxChannels = 32
)

// Command is a decoded LEDP message. Instances are ephemeral: one is
// created per accepted datagram and discarded after dispatch.
type Command struct {
	Version uint8
	Mask    uint32
	Values  uint32
}

// RejectError describes a datagram that failed validation. Rejection is
// a normal, frequent outcome on an open UDP port, not a fault.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "ledp: packet rejected: " + e.Reason
}

// Decode validates and parses a received datagram. It accepts only
// buffers of exactly PacketSize bytes whose first byte equals Version;
// anything else returns a *RejectError with no further interpretation.
func Decode(buf []byte) (Command, error) {
	if len(buf) != PacketSize {
		return Command{}, &RejectError{Reason: fmt.Sprintf("length %d, want %d", len(buf), PacketSize)}
	}
	if buf[0] != Version {
		return Command{}, &RejectError{Reason: fmt.Sprintf("version %d, want %d", buf[0], Version)}
	}
	return Command{
		Version: buf[0],
		Mask:    binary.BigEndian.Uint32(buf[1:5]),
		Values:  binary.BigEndian.Uint32(buf[5:9]),
	}, nil
}

// Encode builds the 9-byte datagram for a mask/values pair using the
// supported protocol version.
func Encode(mask, values uint32) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = Version
	binary.BigEndian.PutUint32(buf[1:5], mask)
	binary.BigEndian.PutUint32(buf[5:9], values)
	return buf
}

// Marshal returns the wire form of the command. The command's own
// version byte is used, so marshalling a command with a version other
// than Version produces a datagram conforming servers will drop.
func (c Command) Marshal() []byte {
	buf := Encode(c.Mask, c.Values)
	buf[0] = c.Version
	return buf
}

// On reports the desired state of channel i, valid only when Selected(i).
func (c Command) On(i int) bool {
	return c.Values&(1<<uint(i)) != 0
}

// Selected reports whether the command addresses channel i.
func (c Command) Selected(i int) bool {
	return c.Mask&(1<<uint(i)) != 0
}
