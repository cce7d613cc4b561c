package backend

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smazurov/ledpd/internal/ledp"
)

// DefaultSysfsLEDPath is the Linux LED class directory.
const DefaultSysfsLEDPath = "/sys/class/leds"

type sysfsLED struct {
	name          string
	maxBrightness int
	brightness    *os.File
}

// Sysfs exports the LEDs registered under the kernel's LED class.
// Channel index equals the discovery position in lexical directory
// order, so the mapping is stable across restarts as long as the set of
// LEDs does not change. Stateless between commands.
type Sysfs struct {
	leds   []sysfsLED
	found  int
	logger *slog.Logger
}

// NewSysfs discovers LEDs under root (DefaultSysfsLEDPath when empty).
// Each entry must expose a parseable max_brightness and a writable
// brightness file; either failing is an error. LEDs beyond the wire
// format's 32-channel capacity are counted and reported but not served.
func NewSysfs(root string, logger *slog.Logger) (*Sysfs, error) {
	if root == "" {
		root = DefaultSysfsLEDPath
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("sysfs: scan %s: %w", root, err)
	}

	s := &Sysfs{logger: logger}
	for _, entry := range entries {
		s.found++
		if len(s.leds) >= ledp.MaxChannels {
			continue
		}

		dir := filepath.Join(root, entry.Name())

		raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
		if err != nil {
			return nil, fmt.Errorf("sysfs: read max_brightness of %s: %w", entry.Name(), err)
		}
		maxBrightness, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("sysfs: parse max_brightness of %s: %w", entry.Name(), err)
		}

		f, err := os.OpenFile(filepath.Join(dir, "brightness"), os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("sysfs: open brightness of %s: %w", entry.Name(), err)
		}

		s.leds = append(s.leds, sysfsLED{
			name:          entry.Name(),
			maxBrightness: maxBrightness,
			brightness:    f,
		})
	}

	if s.found > len(s.leds) {
		logger.Warn("More LEDs than protocol capacity, serving the first ones",
			"found", s.found, "serving", len(s.leds))
	}
	logger.Info("Sysfs backend ready", "path", root, "leds", len(s.leds))
	return s, nil
}

// Name implements Backend.
func (s *Sysfs) Name() string { return "sysfs" }

// Channels implements Backend.
func (s *Sysfs) Channels() int { return len(s.leds) }

// Apply writes each selected LED's max_brightness (on) or "0" (off) to
// its brightness file. Selected channels without a discovered LED are
// ignored; a short write is an error (fatal to the service).
func (s *Sysfs) Apply(mask, values uint32) error {
	for i := range s.leds {
		if mask&(1<<uint(i)) == 0 {
			continue
		}

		led := &s.leds[i]
		value := 0
		if values&(1<<uint(i)) != 0 {
			value = led.maxBrightness
		}

		line := strconv.Itoa(value) + "\n"
		n, err := led.brightness.Write([]byte(line))
		if err != nil {
			return fmt.Errorf("sysfs: write brightness of %s: %w", led.name, err)
		}
		if n != len(line) {
			return fmt.Errorf("sysfs: short write to %s: %d of %d bytes", led.name, n, len(line))
		}
	}
	return nil
}

// Close implements Backend.
func (s *Sysfs) Close() error {
	var firstErr error
	for i := range s.leds {
		if err := s.leds[i].brightness.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Names returns the discovered LED names in channel order, for the
// status API.
func (s *Sysfs) Names() []string {
	names := make([]string, len(s.leds))
	for i, led := range s.leds {
		names[i] = led.name
	}
	return names
}
