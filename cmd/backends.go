package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledpd/internal/backend"
	"github.com/smazurov/ledpd/internal/logging"
	"github.com/smazurov/ledpd/internal/wiimote"
)

// runServe runs the serve runtime under signal control and exits the
// process: 0 only on the clean shutdown path, 1 on any failure.
func runServe(opts ServeOptions, logJSON bool) {
	format := "text"
	if logJSON {
		format = "json"
	}
	logging.Initialize(logging.Config{Level: "info", Format: format})
	logger := logging.GetLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := RunServer(ctx, opts); err != nil {
		logger.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

// CreateGPIOCmd creates the gpio serve command. The AirOS control file
// path is fixed; there are no arguments.
func CreateGPIOCmd() *cobra.Command {
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "gpio",
		Short: "Serve LEDP against the AirOS GPIO control file",
		Long: `Opens ` + backend.DefaultGPIOControlFile + ` and applies incoming LEDP ` +
			`commands as pin writes. Intended for Ubiquiti AirOS firmware.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			runServe(ServeOptions{Backend: "gpio"}, logJSON)
		},
	}
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	return cmd
}

// CreateSysfsCmd creates the sysfs serve command. The LED class
// directory is fixed; there are no arguments.
func CreateSysfsCmd() *cobra.Command {
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "sysfs",
		Short: "Serve LEDP against the Linux LED class",
		Long: `Discovers the LEDs under ` + backend.DefaultSysfsLEDPath + ` in lexical ` +
			`order and applies incoming LEDP commands as brightness writes. ` +
			`Indicated for OpenWRT and modern Linuxes.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			runServe(ServeOptions{Backend: "sysfs"}, logJSON)
		},
	}
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	return cmd
}

// CreateWiimoteCmd creates the wiimote serve command, preserving the
// historical positional form: [bdaddr [port]]. An invalid address or a
// port outside 1..65535 prints usage and exits 1.
func CreateWiimoteCmd() *cobra.Command {
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "wiimote [bdaddr [port]]",
		Short: "Serve LEDP against a Bluetooth Wiimote's four LEDs",
		Long: `Connects to the named Wiimote, or the nearest one known to BlueZ when ` +
			`no address is given, and maps channels 0-3 to its LED indicators.`,
		Args: cobra.MaximumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			opts := ServeOptions{Backend: "wiimote"}

			if len(args) >= 1 {
				if _, err := wiimote.ParseAddress(args[0]); err != nil {
					cmd.PrintErrln(err)
					_ = cmd.Usage()
					os.Exit(1)
				}
				opts.WiimoteAddress = args[0]
			}
			if len(args) >= 2 {
				port, err := strconv.Atoi(args[1])
				if err != nil || port < 1 || port > 65535 {
					cmd.PrintErrf("invalid port %q\n", args[1])
					_ = cmd.Usage()
					os.Exit(1)
				}
				opts.UDPPort = port
			}

			runServe(opts, logJSON)
		},
	}
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	return cmd
}
