package ledp

import (
	"net"
	"testing"
	"time"
)

// newTestPair returns a client wired to a loopback UDP socket and a
// receive function returning the next datagram.
func newTestPair(t *testing.T) (*Client, func() []byte) {
	t.Helper()

	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to bind loopback socket: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	conn, err := net.Dial("udp", server.LocalAddr().String())
	if err != nil {
		t.Fatalf("Failed to dial loopback socket: %v", err)
	}

	client := NewClient(conn)
	t.Cleanup(func() { client.Close() })

	recv := func() []byte {
		buf := make([]byte, 64)
		server.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := server.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("Failed to receive datagram: %v", err)
		}
		return buf[:n]
	}
	return client, recv
}

func TestClientSendRaw(t *testing.T) {
	client, recv := newTestPair(t)

	if err := client.SendRaw(0b101, 0b100); err != nil {
		t.Fatalf("SendRaw failed: %v", err)
	}

	cmd, err := Decode(recv())
	if err != nil {
		t.Fatalf("Server rejected client datagram: %v", err)
	}
	if cmd.Mask != 0b101 || cmd.Values != 0b100 {
		t.Errorf("Received (%#b, %#b), want (0b101, 0b100)", cmd.Mask, cmd.Values)
	}
}

func TestClientCommitSendsStagedState(t *testing.T) {
	client, recv := newTestPair(t)

	client.SetLED(0, true)
	client.SetLED(3, false)
	client.SetLED(5, true)

	if err := client.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	cmd, err := Decode(recv())
	if err != nil {
		t.Fatalf("Server rejected commit datagram: %v", err)
	}
	if cmd.Mask != 0b101001 {
		t.Errorf("Mask = %#b, want 0b101001", cmd.Mask)
	}
	if cmd.Values&cmd.Mask != 0b100001 {
		t.Errorf("Masked values = %#b, want 0b100001", cmd.Values&cmd.Mask)
	}
}

func TestClientReleaseAndReset(t *testing.T) {
	client, recv := newTestPair(t)

	client.SetLED(0, true)
	client.SetLED(1, true)
	client.ReleaseLED(0)

	if err := client.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	cmd, err := Decode(recv())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cmd.Mask != 0b10 {
		t.Errorf("Mask after release = %#b, want 0b10", cmd.Mask)
	}

	client.Reset()
	if err := client.Commit(); err != nil {
		t.Fatalf("Commit after reset failed: %v", err)
	}
	cmd, err = Decode(recv())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cmd.Mask != 0 {
		t.Errorf("Mask after reset = %#b, want 0", cmd.Mask)
	}
}

func TestClientSetLEDOverwrites(t *testing.T) {
	client, recv := newTestPair(t)

	client.SetLED(2, true)
	client.SetLED(2, false)

	if err := client.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	cmd, err := Decode(recv())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cmd.Mask != 0b100 {
		t.Errorf("Mask = %#b, want 0b100", cmd.Mask)
	}
	if cmd.On(2) {
		t.Error("Channel 2 should be off after overwrite")
	}
}
