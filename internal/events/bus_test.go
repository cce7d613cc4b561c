package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan CommandAppliedEvent, 1)

	unsub := bus.Subscribe(func(e CommandAppliedEvent) {
		received <- e
	})
	defer unsub()

	event := CommandAppliedEvent{Backend: "sysfs", Mask: 0b101, Values: 0b100, Channels: 2}
	bus.Publish(event)

	got := <-received
	if got.Backend != event.Backend || got.Mask != event.Mask || got.Values != event.Values {
		t.Errorf("Received %+v, want %+v", got, event)
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	appliedReceived := make(chan bool, 1)
	droppedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ CommandAppliedEvent) {
		appliedReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ PacketDroppedEvent) {
		droppedReceived <- true
	})
	defer unsub2()

	bus.Publish(PacketDroppedEvent{Reason: "version", Bytes: 9})
	<-droppedReceived

	select {
	case <-appliedReceived:
		t.Fatal("Applied subscriber should not have received PacketDroppedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceErrorEvent, 1)

	unsub := bus.Subscribe(func(e DeviceErrorEvent) {
		received <- e
	})

	bus.Publish(DeviceErrorEvent{Backend: "wiimote", Error: "hci down"})
	<-received

	unsub()

	bus.Publish(DeviceErrorEvent{Backend: "wiimote", Error: "hci down"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	// Must not panic.
	unsub()
}
