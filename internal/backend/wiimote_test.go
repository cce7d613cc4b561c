package backend

import (
	"errors"
	"testing"
)

// fakeDevice records LED commands and can be made to fail.
type fakeDevice struct {
	flags  []byte
	err    error
	closed bool
}

func (d *fakeDevice) SetLEDs(flags byte) error {
	d.flags = append(d.flags, flags)
	return d.err
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func TestWiimoteRegisterPersistsAcrossCommands(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWiimote(dev, testLogger(), nil)

	if err := w.Apply(0b0001, 0b0001); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := w.Apply(0b0010, 0b0010); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if got := w.Register(); got != 0b0011 {
		t.Errorf("Register = %#b, want 0b11", got)
	}
	if len(dev.flags) != 2 {
		t.Fatalf("Device got %d commands, want 2", len(dev.flags))
	}
	if dev.flags[1] != 0b0011 {
		t.Errorf("Second command flags = %#b, want 0b11 (first two indicators)", dev.flags[1])
	}
}

func TestWiimoteMaskedUpdateOnly(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWiimote(dev, testLogger(), nil)

	if err := w.Apply(0b1111, 0b1111); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// Clear only channel 1; stray value bits outside the mask must not
	// leak into the register.
	if err := w.Apply(0b0010, 0b1101); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if got := w.Register(); got != 0b1101 {
		t.Errorf("Register = %#b, want 0b1101", got)
	}
}

func TestWiimoteHighChannelsHaveNoPhysicalEffect(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWiimote(dev, testLogger(), nil)

	if err := w.Apply(0xFFFFFFF0, 0xFFFFFFF0); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if got := w.Register(); got != 0xFFFFFFF0 {
		t.Errorf("Register = %#x, want 0xfffffff0", got)
	}
	if dev.flags[0] != 0 {
		t.Errorf("Device flags = %#b, want 0 (no hardware LEDs addressed)", dev.flags[0])
	}
}

func TestWiimoteDeviceFailureIsNonFatal(t *testing.T) {
	dev := &fakeDevice{err: errors.New("hci write failed")}
	w := NewWiimote(dev, testLogger(), nil)

	if err := w.Apply(0b0001, 0b0001); err != nil {
		t.Fatalf("Apply returned error on device failure: %v", err)
	}

	// The register keeps the intended state; no rollback.
	if got := w.Register(); got != 0b0001 {
		t.Errorf("Register = %#b, want 0b1", got)
	}
}

func TestWiimoteClose(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWiimote(dev, testLogger(), nil)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !dev.closed {
		t.Error("Close did not reach the device")
	}
}
