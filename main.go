package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/ledpd/cmd"
	"github.com/smazurov/ledpd/internal/config"
	"github.com/smazurov/ledpd/internal/ledp"
	"github.com/smazurov/ledpd/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"ledpd.toml"`

	// Listener settings
	Backend string `help:"Backend to serve (gpio, sysfs, wiimote, noop)" short:"b" default:"sysfs" toml:"listener.backend" env:"BACKEND"`
	UDPPort int    `help:"UDP port to listen on" short:"p" default:"5021" toml:"listener.port" env:"UDP_PORT"`

	// Backend settings
	GPIOControlFile string `help:"GPIO control file path" default:"" toml:"gpio.control_file" env:"GPIO_CONTROL_FILE"`
	SysfsLEDPath    string `help:"Sysfs LED class directory" default:"" toml:"sysfs.led_path" env:"SYSFS_LED_PATH"`
	WiimoteAddress  string `help:"Wiimote bluetooth address (empty = nearest)" default:"" toml:"wiimote.address" env:"WIIMOTE_ADDRESS"`

	// Status API settings
	HTTPAddr       string `help:"Status API listen address (empty = disabled)" default:":8090" toml:"http.addr" env:"HTTP_ADDR"`
	MetricsEnabled bool   `help:"Expose Prometheus metrics on the status API" default:"true" toml:"http.metrics_enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingListener string `help:"Listener logging level" default:"" toml:"logging.listener" env:"LOGGING_LISTENER"`
	LoggingBackend  string `help:"Backend logging level" default:"" toml:"logging.backend" env:"LOGGING_BACKEND"`
	LoggingAPI      string `help:"Status API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
}

// loggingConfig builds the logging configuration from options, leaving
// out empty per-module overrides.
func loggingConfig(opts *Options) logging.Config {
	modules := map[string]string{}
	for module, level := range map[string]string{
		"listener": opts.LoggingListener,
		"backend":  opts.LoggingBackend,
		"api":      opts.LoggingAPI,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   opts.LoggingLevel,
		Format:  opts.LoggingFormat,
		Modules: modules,
	}
}

func main() {
	// Declared before New so the setup closure, which runs at command
	// execution time, can hand the root command to the config loader;
	// explicitly set flags must survive config and env values.
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.Load(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(loggingConfig(opts))
		logger := logging.GetLogger("main")

		if opts.UDPPort == 0 {
			opts.UDPPort = ledp.DefaultPort
		}

		// Re-apply logging levels when the config file changes; all
		// other settings are fixed for the process lifetime.
		watcher := config.NewWatcher(opts.Config, func(path string) {
			reloaded := *opts
			reloaded.Config = path
			if err := config.Load(&reloaded, cli.Root()); err != nil {
				logger.Warn("Config reload failed", "error", err)
				return
			}
			logging.Initialize(loggingConfig(&reloaded))
		}, logger)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if err := watcher.Start(); err != nil {
				logger.Warn("Config watcher unavailable", "error", err)
			}

			if err := cmd.RunServer(ctx, cmd.ServeOptions{
				Backend:         opts.Backend,
				UDPPort:         opts.UDPPort,
				GPIOControlFile: opts.GPIOControlFile,
				SysfsLEDPath:    opts.SysfsLEDPath,
				WiimoteAddress:  opts.WiimoteAddress,
				HTTPAddr:        opts.HTTPAddr,
				MetricsEnabled:  opts.MetricsEnabled,
			}); err != nil {
				logger.Error("Service failed", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			watcher.Stop()
		})
	})

	cli.Root().Use = "ledpd"
	cli.Root().Short = "LEDP channel control daemon"
	cli.Root().AddCommand(
		cmd.CreateGPIOCmd(),
		cmd.CreateSysfsCmd(),
		cmd.CreateWiimoteCmd(),
		cmd.CreateSendCmd(),
	)

	cli.Run()
}
