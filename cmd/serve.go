// Package cmd implements the daemon's subcommands and the shared serve
// runtime they all start.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/smazurov/ledpd/internal/api"
	"github.com/smazurov/ledpd/internal/backend"
	"github.com/smazurov/ledpd/internal/events"
	"github.com/smazurov/ledpd/internal/ledp"
	"github.com/smazurov/ledpd/internal/listener"
	"github.com/smazurov/ledpd/internal/logging"
	"github.com/smazurov/ledpd/internal/metrics"
	"github.com/smazurov/ledpd/internal/systemd"
	"github.com/smazurov/ledpd/internal/wiimote"
)

// ServeOptions parameterizes one service run.
type ServeOptions struct {
	Backend         string
	UDPPort         int
	GPIOControlFile string
	SysfsLEDPath    string
	WiimoteAddress  string

	// HTTPAddr enables the read-only status API when non-empty.
	HTTPAddr string

	// MetricsEnabled wires Prometheus counters into the status API.
	MetricsEnabled bool
}

// RunServer brings the service up and blocks until ctx is cancelled
// (clean shutdown, returns nil) or a fatal condition occurs (returned
// as an error; the caller exits 1). Every startup failure — bind,
// device open, Bluetooth connect — lands here.
func RunServer(ctx context.Context, opts ServeOptions) error {
	logger := logging.GetLogger("serve")
	bus := events.New()

	if opts.UDPPort == 0 {
		opts.UDPPort = ledp.DefaultPort
	}
	if opts.UDPPort < 1 || opts.UDPPort > 65535 {
		return fmt.Errorf("serve: port %d out of range", opts.UDPPort)
	}

	// Validate the wiimote address before touching any hardware. Other
	// backends ignore it; a stale value must not keep them down.
	var addr wiimote.Address
	if opts.Backend == "wiimote" {
		var err error
		addr, err = wiimote.ParseAddress(opts.WiimoteAddress)
		if err != nil {
			return err
		}
	}

	be, err := backend.Open(backend.Config{
		Kind:            opts.Backend,
		GPIOControlFile: opts.GPIOControlFile,
		SysfsLEDPath:    opts.SysfsLEDPath,
		WiimoteAddress:  opts.WiimoteAddress,
	}, logging.GetLogger("backend"), bus, func(string) (backend.Device, error) {
		return wiimote.Connect(addr, logging.GetLogger("wiimote"))
	})
	if err != nil {
		return err
	}
	defer be.Close()

	var recorder *metrics.Recorder
	if opts.MetricsEnabled {
		recorder = metrics.NewRecorder(bus)
		defer recorder.Close()
	}

	var statusAPI *api.Server
	if opts.HTTPAddr != "" {
		apiOpts := &api.Options{
			Backend: be,
			Bus:     bus,
			UDPPort: opts.UDPPort,
		}
		if recorder != nil {
			apiOpts.MetricsHandler = recorder.Handler()
		}
		statusAPI = api.NewServer(apiOpts)
		go func() {
			if err := statusAPI.Start(opts.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Status API server stopped", "error", err)
			}
		}()
		defer statusAPI.Stop()
	}

	l := listener.New(listener.Config{
		Port:    opts.UDPPort,
		Backend: be,
		Bus:     bus,
		Logger:  logging.GetLogger("listener"),
	})
	if err := l.Bind(); err != nil {
		return err
	}

	systemd.NotifyReady(logger)
	defer systemd.NotifyStopping(logger)

	return l.Start(ctx)
}
