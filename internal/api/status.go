package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ledpd/internal/version"
)

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Service liveness"`
	}
}

// StatusResponse describes the running service.
type StatusResponse struct {
	Body struct {
		Backend        string   `json:"backend" example:"sysfs" doc:"Active backend"`
		Channels       int      `json:"channels" example:"4" doc:"Channels with hardware backing"`
		UDPPort        int      `json:"udp_port" example:"5021" doc:"LEDP listen port"`
		UptimeSeconds  int64    `json:"uptime_seconds" doc:"Seconds since startup"`
		PacketsApplied uint64   `json:"packets_applied" doc:"Commands accepted and applied"`
		PacketsDropped uint64   `json:"packets_dropped" doc:"Datagrams rejected by validation"`
		Register       *uint32  `json:"register,omitempty" doc:"Last-known channel register (wiimote backend only)"`
		LEDNames       []string `json:"led_names,omitempty" doc:"Discovered LED names in channel order (sysfs backend only)"`
	}
}

// VersionResponse carries build metadata.
type VersionResponse struct {
	Body version.Info
}

// registerRoutes registers the read-only status operations.
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health Check",
		Tags:        []string{"status"},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Service Status",
		Description: "Active backend, channel count, and packet tallies. Read-only; channel state is changed exclusively over the UDP protocol.",
		Tags:        []string{"status"},
	}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
		resp := &StatusResponse{}
		resp.Body.Backend = s.options.Backend.Name()
		resp.Body.Channels = s.options.Backend.Channels()
		resp.Body.UDPPort = s.options.UDPPort
		resp.Body.UptimeSeconds = int64(time.Since(s.started).Seconds())
		resp.Body.PacketsApplied = s.applied.Load()
		resp.Body.PacketsDropped = s.dropped.Load()

		if reg, ok := s.options.Backend.(interface{ Register() uint32 }); ok {
			r := reg.Register()
			resp.Body.Register = &r
		}
		if named, ok := s.options.Backend.(interface{ Names() []string }); ok {
			resp.Body.LEDNames = named.Names()
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version Information",
		Tags:        []string{"status"},
	}, func(ctx context.Context, input *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})
}
