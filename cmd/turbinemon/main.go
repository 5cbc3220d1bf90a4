// Command turbinemon estimates the isentropic efficiency of a steam turbine
// from live pressure and temperature telemetry.
package main

import (
	"fmt"
	"os"

	"codeberg.org/mutker/turbinemon/internal/config"
	"codeberg.org/mutker/turbinemon/internal/pid"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "turbinemon",
		Short: "Steam turbine isentropic efficiency monitor",
		Long: `turbinemon reads "p1,p2,t1,t2" telemetry lines from a serial device,
TCP stream or stdin, estimates the isentropic efficiency of each sample and
tracks a self-calibrating reference state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMonitor,
	}
	root.Version = Version
	root.SetVersionTemplate("turbinemon version {{.Version}}\n")

	flags := root.Flags()
	config.RegisterFlags(flags)
	flags.StringP("config", "c", "", "Config file (default $TURBINEMON_CONFIG or "+config.DefaultConfigPath+")")
	flags.String("pid-file", pid.Default().Path(), "PID file guarding against concurrent instances")

	root.AddCommand(newPropertiesCmd(), newParseCmd())

	return root
}
