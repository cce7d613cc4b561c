package backend

import (
	"log/slog"

	"github.com/smazurov/ledpd/internal/ledp"
)

// noop implements Backend for hosts without any supported LED hardware.
// Commands are logged at debug level and discarded.
type noop struct {
	logger *slog.Logger
}

// NewNoop creates a no-op backend.
func NewNoop(logger *slog.Logger) Backend {
	return &noop{logger: logger}
}

func (n *noop) Name() string  { return "noop" }
func (n *noop) Channels() int { return ledp.MaxChannels }

func (n *noop) Apply(mask, values uint32) error {
	n.logger.Debug("LED hardware not available (no-op)",
		"mask", mask, "values", values)
	return nil
}

func (n *noop) Close() error { return nil }
