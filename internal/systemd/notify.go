// Package systemd integrates with the service manager's readiness
// protocol. All calls degrade to no-ops outside a systemd unit.
package systemd

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the service is serving.
func NotifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("sd_notify READY failed", "error", err)
		return
	}
	if sent {
		logger.Debug("Notified systemd: ready")
	}
}

// NotifyStopping tells systemd shutdown has begun.
func NotifyStopping(logger *slog.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logger.Warn("sd_notify STOPPING failed", "error", err)
	}
}
