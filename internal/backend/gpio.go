package backend

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/smazurov/ledpd/internal/ledp"
)

// DefaultGPIOControlFile is the AirOS GPIO control file. The file
// accepts lines of three space-separated integers: the pin index and
// two boolean fields whose relative meaning (direction vs. level) is
// undocumented upstream. Writing the same value into both is the only
// behavior validated against real hardware, so it is preserved here.
const DefaultGPIOControlFile = "/proc/gpio/system_led"

// GPIO drives pins through a single write-only control file. It keeps
// no state between commands; every write is absolute.
type GPIO struct {
	control *os.File
	logger  *slog.Logger
}

// NewGPIO opens the control file write-only. An empty path selects
// DefaultGPIOControlFile.
func NewGPIO(path string, logger *slog.Logger) (*GPIO, error) {
	if path == "" {
		path = DefaultGPIOControlFile
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio: open control file: %w", err)
	}
	logger.Info("GPIO backend ready", "control_file", path)
	return &GPIO{control: f, logger: logger}, nil
}

// Name implements Backend.
func (g *GPIO) Name() string { return "gpio" }

// Channels implements Backend. Every wire channel maps to a pin index.
func (g *GPIO) Channels() int { return ledp.MaxChannels }

// Apply builds one "<index> <v> <v>\n" line per selected channel and
// issues them as a single write. A short write is an error (fatal to
// the service).
func (g *GPIO) Apply(mask, values uint32) error {
	var buf bytes.Buffer
	for i := 0; i < ledp.MaxChannels; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		v := 0
		if values&(1<<uint(i)) != 0 {
			v = 1
		}
		fmt.Fprintf(&buf, "%d %d %d\n", i, v, v)
	}
	if buf.Len() == 0 {
		return nil
	}

	n, err := g.control.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("gpio: write control file: %w", err)
	}
	if n != buf.Len() {
		return fmt.Errorf("gpio: short write: %d of %d bytes", n, buf.Len())
	}
	return nil
}

// Close implements Backend.
func (g *GPIO) Close() error {
	return g.control.Close()
}
