package events

// Event type constants for kelindar/event.
const (
	TypeCommandApplied uint32 = iota + 1
	TypePacketDropped
	TypeDeviceError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CommandAppliedEvent is published after a valid LEDP command has been
// fully applied by the active backend.
type CommandAppliedEvent struct {
	Backend  string `json:"backend"`
	Mask     uint32 `json:"mask"`
	Values   uint32 `json:"values"`
	Channels int    `json:"channels" doc:"Number of channels the command addressed"`
}

// Type returns the event type identifier for CommandAppliedEvent.
func (e CommandAppliedEvent) Type() uint32 { return TypeCommandApplied }

// PacketDroppedEvent is published when a datagram fails validation and
// is silently dropped. Reason is "length" or "version".
type PacketDroppedEvent struct {
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

// Type returns the event type identifier for PacketDroppedEvent.
func (e PacketDroppedEvent) Type() uint32 { return TypePacketDropped }

// DeviceErrorEvent is published when a backend's device command fails
// without aborting the process (wiimote only).
type DeviceErrorEvent struct {
	Backend string `json:"backend"`
	Error   string `json:"error"`
}

// Type returns the event type identifier for DeviceErrorEvent.
func (e DeviceErrorEvent) Type() uint32 { return TypeDeviceError }
