package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Backend string `toml:"listener.backend" env:"BACKEND"`
	UDPPort int    `toml:"listener.port" env:"UDP_PORT"`
	Metrics bool   `toml:"http.metrics_enabled" env:"METRICS_ENABLED"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledpd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, `
[listener]
backend = "wiimote"
port = 6000

[http]
metrics_enabled = true
`)

	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.Backend != "wiimote" {
		t.Errorf("Backend = %q, want wiimote", opts.Backend)
	}
	if opts.UDPPort != 6000 {
		t.Errorf("UDPPort = %d, want 6000", opts.UDPPort)
	}
	if !opts.Metrics {
		t.Error("Metrics = false, want true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEDPD_BACKEND", "gpio")
	t.Setenv("LEDPD_UDP_PORT", "7000")
	t.Setenv("LEDPD_METRICS_ENABLED", "false")

	opts := &testOptions{Metrics: true}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.Backend != "gpio" {
		t.Errorf("Backend = %q, want gpio", opts.Backend)
	}
	if opts.UDPPort != 7000 {
		t.Errorf("UDPPort = %d, want 7000", opts.UDPPort)
	}
	if opts.Metrics {
		t.Error("Metrics = true, want false")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[listener]
port = 6000
`)
	t.Setenv("LEDPD_UDP_PORT", "7000")

	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.UDPPort != 7000 {
		t.Errorf("UDPPort = %d, want env value 7000", opts.UDPPort)
	}
}

func TestChangedFlagBeatsEnvAndTOML(t *testing.T) {
	path := writeConfig(t, `
[listener]
backend = "gpio"
port = 6000
`)
	t.Setenv("LEDPD_UDP_PORT", "7000")

	cmd := &cobra.Command{Use: "ledpd"}
	cmd.Flags().Int("udp-port", 5021, "")
	cmd.Flags().String("backend", "sysfs", "")
	if err := cmd.Flags().Parse([]string{"--udp-port", "9000"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	// The flag binding already put 9000 into the options; Load must not
	// clobber it with the env or file value. The untouched backend flag
	// still yields to the file.
	opts := &testOptions{Config: path, UDPPort: 9000, Backend: "sysfs"}
	if err := Load(opts, cmd); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.UDPPort != 9000 {
		t.Errorf("UDPPort = %d, want flag value 9000", opts.UDPPort)
	}
	if opts.Backend != "gpio" {
		t.Errorf("Backend = %q, want file value gpio", opts.Backend)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml"), Backend: "sysfs"}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed on a missing config: %v", err)
	}
	if opts.Backend != "sysfs" {
		t.Errorf("Backend = %q, want untouched sysfs", opts.Backend)
	}
}

func TestLoadBadTOMLFails(t *testing.T) {
	path := writeConfig(t, "[listener\nport=")
	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err == nil {
		t.Fatal("Load accepted malformed TOML")
	}
}

func TestFlagName(t *testing.T) {
	cases := map[string]string{
		"Backend":         "backend",
		"UDPPort":         "udp-port",
		"LoggingLevel":    "logging-level",
		"GPIOControlFile": "gpio-control-file",
	}
	for field, want := range cases {
		if got := flagName(field); got != want {
			t.Errorf("flagName(%q) = %q, want %q", field, got, want)
		}
	}
}
