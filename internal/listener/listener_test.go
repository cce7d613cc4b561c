package listener

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/ledpd/internal/backend"
	"github.com/smazurov/ledpd/internal/ledp"
)

type appliedCommand struct {
	mask, values uint32
}

// fakeBackend feeds every applied command into a channel.
type fakeBackend struct {
	applied chan appliedCommand
	err     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{applied: make(chan appliedCommand, 16)}
}

func (b *fakeBackend) Name() string  { return "fake" }
func (b *fakeBackend) Channels() int { return ledp.MaxChannels }
func (b *fakeBackend) Close() error  { return nil }

func (b *fakeBackend) Apply(mask, values uint32) error {
	if b.err != nil {
		return b.err
	}
	b.applied <- appliedCommand{mask, values}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startListener binds an ephemeral port and runs the loop until the
// test finishes. It returns the send side and the loop's result channel.
func startListener(t *testing.T, be backend.Backend) (net.Conn, chan error, context.CancelFunc) {
	t.Helper()

	l := New(Config{Backend: be, Logger: testLogger()})
	if err := l.Bind(); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	conn, err := net.Dial("udp", l.LocalAddr().String())
	if err != nil {
		t.Fatalf("Failed to dial listener: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return conn, done, cancel
}

func waitApplied(t *testing.T, be *fakeBackend) appliedCommand {
	t.Helper()
	select {
	case cmd := <-be.applied:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("Backend never saw the command")
		return appliedCommand{}
	}
}

func assertNothingApplied(t *testing.T, be *fakeBackend) {
	t.Helper()
	select {
	case cmd := <-be.applied:
		t.Fatalf("Backend applied (%#x, %#x) for a packet that should be dropped", cmd.mask, cmd.values)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestListenerDispatchesValidPacket(t *testing.T) {
	be := newFakeBackend()
	conn, _, _ := startListener(t, be)

	if _, err := conn.Write(ledp.Encode(0b101, 0b100)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got := waitApplied(t, be)
	if got.mask != 0b101 || got.values != 0b100 {
		t.Errorf("Applied (%#b, %#b), want (0b101, 0b100)", got.mask, got.values)
	}
}

func TestListenerDropsBadLength(t *testing.T) {
	be := newFakeBackend()
	conn, _, _ := startListener(t, be)

	payloads := [][]byte{
		{},
		{1},
		{1, 0, 0, 0, 1, 0, 0, 0},       // 8 bytes
		{1, 0, 0, 0, 1, 0, 0, 0, 1, 0}, // 10 bytes
		make([]byte, 40),               // oversized
	}
	for _, payload := range payloads {
		if _, err := conn.Write(payload); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	assertNothingApplied(t, be)
}

func TestListenerDropsBadVersion(t *testing.T) {
	be := newFakeBackend()
	conn, _, _ := startListener(t, be)

	packet := ledp.Encode(1, 1)
	packet[0] = 2
	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	assertNothingApplied(t, be)
}

func TestListenerSurvivesBadInput(t *testing.T) {
	// Garbage must not terminate the loop; a valid packet after it
	// still gets through.
	be := newFakeBackend()
	conn, _, _ := startListener(t, be)

	if _, err := conn.Write([]byte("definitely not ledp")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := conn.Write(ledp.Encode(1, 1)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got := waitApplied(t, be)
	if got.mask != 1 || got.values != 1 {
		t.Errorf("Applied (%#x, %#x), want (1, 1)", got.mask, got.values)
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	be := newFakeBackend()
	_, done, cancel := startListener(t, be)

	cancel()
	select {
	case err := <-done:
		// Re-buffer the result so startListener's Cleanup receive,
		// which also drains done, does not block forever.
		done <- err
		if err != nil {
			t.Errorf("Start returned %v on cancellation, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listener did not stop on cancellation")
	}
}

func TestListenerBindConflictFails(t *testing.T) {
	first := New(Config{Backend: newFakeBackend(), Logger: testLogger()})
	if err := first.Bind(); err != nil {
		t.Fatalf("First bind failed: %v", err)
	}
	defer first.conn.Close()

	port := first.LocalAddr().(*net.UDPAddr).Port
	second := New(Config{Port: port, Backend: newFakeBackend(), Logger: testLogger()})
	if err := second.Bind(); err == nil {
		t.Fatal("Second bind on the same port succeeded")
	}
}

func TestEndToEndSysfs(t *testing.T) {
	// Full path: raw datagram -> codec -> sysfs backend -> device file.
	root := t.TempDir()
	ledDir := filepath.Join(root, "led0")
	if err := os.MkdirAll(ledDir, 0o755); err != nil {
		t.Fatalf("Failed to create LED dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ledDir, "max_brightness"), []byte("255\n"), 0o644); err != nil {
		t.Fatalf("Failed to write max_brightness: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ledDir, "brightness"), nil, 0o644); err != nil {
		t.Fatalf("Failed to write brightness: %v", err)
	}

	be, err := backend.NewSysfs(root, testLogger())
	if err != nil {
		t.Fatalf("NewSysfs failed: %v", err)
	}

	l := New(Config{Backend: be, Logger: testLogger()})
	if err := l.Bind(); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	defer func() {
		cancel()
		<-done
		be.Close()
	}()

	conn, err := net.Dial("udp", l.LocalAddr().String())
	if err != nil {
		t.Fatalf("Failed to dial listener: %v", err)
	}
	defer conn.Close()

	// Turn channel 0 on.
	if _, err := conn.Write([]byte{1, 0, 0, 0, 1, 0, 0, 0, 1}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	want := "255\n"
	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(filepath.Join(ledDir, "brightness"))
		if err == nil && string(data) == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("brightness = %q, want %q", data, want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Unsupported version must produce no write at all.
	if _, err := conn.Write([]byte{2, 0, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	data, err := os.ReadFile(filepath.Join(ledDir, "brightness"))
	if err != nil {
		t.Fatalf("Failed to read brightness: %v", err)
	}
	if string(data) != want {
		t.Errorf("brightness after bad version = %q, want unchanged %q", data, want)
	}
}
