package wiimote

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezBusName         = "org.bluez"
	bluezDeviceInterface = "org.bluez.Device1"
)

// wiimoteNamePrefix matches both the original controller
// ("Nintendo RVL-CNT-01") and the TR/Plus revision
// ("Nintendo RVL-CNT-01-TR").
const wiimoteNamePrefix = "Nintendo RVL-CNT-01"

// Discover asks BlueZ for known devices and returns the address of the
// first Wiimote it finds. The device must already be known to the
// adapter (paired or previously scanned); pairing itself is handled by
// the usual system tools, not here.
func Discover(logger *slog.Logger) (Address, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return Address{}, fmt.Errorf("wiimote: connect to system D-Bus: %w", err)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object(bluezBusName, "/")
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return Address{}, fmt.Errorf("wiimote: list bluez objects: %w", err)
	}

	for path, interfaces := range objects {
		props, ok := interfaces[bluezDeviceInterface]
		if !ok {
			continue
		}

		name, _ := props["Name"].Value().(string)
		if !strings.HasPrefix(name, wiimoteNamePrefix) {
			continue
		}

		addrStr, _ := props["Address"].Value().(string)
		addr, err := ParseAddress(addrStr)
		if err != nil {
			logger.Warn("BlueZ reported unparseable device address",
				"path", string(path), "address", addrStr)
			continue
		}

		logger.Info("Discovered Wiimote", "name", name, "address", addr.String())
		return addr, nil
	}

	return Address{}, fmt.Errorf("wiimote: no wiimote known to bluez; pair one first")
}
