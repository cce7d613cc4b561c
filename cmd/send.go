package cmd

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledpd/internal/ledp"
)

// CreateSendCmd creates the client command that fires one LEDP message
// at a running server.
//
// The bits argument is a string of per-channel characters: '0' turns
// the channel off, '1' turns it on, anything else leaves it untouched.
// The first character is channel 0 and the string need not name all 32
// channels. Example: "__01__0" turns channel 3 on and channels 2 and 6
// off.
func CreateSendCmd() *cobra.Command {
	var redundancy int

	cmd := &cobra.Command{
		Use:   "send <host[:port]> <bits>",
		Short: "Send a LEDP message to a server",
		Long: `Encodes a single LEDP message from a bit pattern and sends it over UDP. ` +
			`Because delivery is fire-and-forget, --redundancy resends the same ` +
			`message several times for lossy links.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := splitHostPort(args[0])
			if err != nil {
				return err
			}

			bits := args[1]
			if len(bits) > ledp.MaxChannels {
				return fmt.Errorf("bit pattern longer than %d channels", ledp.MaxChannels)
			}
			if redundancy < 1 {
				return fmt.Errorf("redundancy must be at least 1")
			}

			client, err := ledp.Dial(host, port)
			if err != nil {
				return err
			}
			defer client.Close()

			for pos, c := range bits {
				switch c {
				case '0':
					client.SetLED(pos, false)
				case '1':
					client.SetLED(pos, true)
				}
			}

			for i := 0; i < redundancy; i++ {
				if err := client.Commit(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&redundancy, "redundancy", "r", 1, "How many times to send the message")
	return cmd
}

// splitHostPort parses "host" or "host:port"; a missing port selects
// the protocol default.
func splitHostPort(arg string) (string, int, error) {
	if !strings.Contains(arg, ":") {
		return arg, 0, nil
	}
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil {
		return "", 0, fmt.Errorf("invalid host %q", arg)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
