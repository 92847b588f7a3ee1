package cmd

import (
	"fmt"

	"github.com/caarlos0/env"
	"github.com/spf13/cobra"

	"github.com/akm/buildbot-lights/internal/lights/irtoy"
)

type recordConfig struct {
	SerialPort  string `env:"SERIAL_PORT" envDefault:"/dev/ttyACM0"`
	ButtonsFile string `env:"BUTTONS_FILE" envDefault:"data/buttons.json"`
}

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record [button ...]",
		Short: "Record IR remote buttons into the button file",
		Long: `Captures IR codes from the physical remote through the IR Toy. With no ` +
			`arguments every button is recorded in order; otherwise only the named ` +
			`buttons are re-recorded. The running light picks up the new file automatically.`,
		ValidArgs: irtoy.ButtonNames,
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()

			config := recordConfig{}
			if err := env.Parse(&config); err != nil {
				return fmt.Errorf("parse environment variables: %w", err)
			}

			device, err := irtoy.Open(config.SerialPort)
			if err != nil {
				return err
			}
			defer device.Close()

			store := irtoy.NewStore(config.ButtonsFile)
			if err := store.Load(); err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = irtoy.ButtonNames
			}

			cmd.Printf("Protocol version: %s\n", device.ProtocolVersion())
			for _, name := range names {
				cmd.Printf("Press %q on the remote...\n", name)
				code, err := device.Record()
				if err != nil {
					return fmt.Errorf("record button %q: %w", name, err)
				}
				store.SetCode(name, code)
				cmd.Printf("Captured %d bytes\n", len(code))
			}

			if err := store.Save(); err != nil {
				return err
			}
			cmd.Printf("Saved %d button(s) to %s\n", len(names), config.ButtonsFile)
			return nil
		},
	}
}
