// Package cmd wires up the CLI.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/akm/buildbot-lights/internal/logging"
)

var logger = logging.New("main")

func Execute() {
	root := &cobra.Command{
		Use:   "buildbot-lights",
		Short: "Drive an RGB build light from BuildBot status",
		Long: `Polls a BuildBot master for builder status and shows it as a colour on an ` +
			`RGB light: an IR-remote-controlled globe/strip behind an IR Toy USB-serial ` +
			`transmitter, or a LIFX bulb group.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newRecordCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
