package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akm/buildbot-lights/internal/buildbot"
	"github.com/akm/buildbot-lights/internal/lights/irtoy"
	"github.com/akm/buildbot-lights/internal/lights/lifx"
	"github.com/akm/buildbot-lights/internal/poller"
	"github.com/akm/buildbot-lights/lights"
)

type runConfig struct {
	BuildbotURL      string        `env:"BUILDBOT_URL" envDefault:"http://localhost:8010"`
	BuilderName      string        `env:"BUILDER_NAME"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"3"`
	MinDwell         time.Duration `env:"MIN_DWELL" envDefault:"2s"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	LightType        string        `env:"LIGHT_TYPE" envDefault:"IRTOY"`
	SerialPort       string        `env:"SERIAL_PORT" envDefault:"/dev/ttyACM0"`
	ButtonsFile      string        `env:"BUTTONS_FILE" envDefault:"data/buttons.json"`
	LightGroupName   string        `env:"LIGHT_GROUP_NAME" envDefault:"BUILD"`
	MaxBrightness    float64       `env:"MAX_BRIGHTNESS" envDefault:"0.65"`
	MinBrightness    float64       `env:"MIN_BRIGHTNESS" envDefault:"0"`
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll BuildBot and keep the light in sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			defer logger.Sync()

			config := runConfig{}
			if err := env.Parse(&config); err != nil {
				return fmt.Errorf("parse environment variables: %w", err)
			}
			if config.BuilderName == "" {
				return errors.New("BUILDER_NAME must be set")
			}

			logger.With(zap.Any("config", config)).Info("Starting build light")
			logger.Info("Adjust POLL_INTERVAL to change how often BuildBot is polled.")
			logger.Info("Adjust FAILURE_THRESHOLD to change how many consecutive fetch failures flip the light to the offline colour.")
			logger.Info("Adjust MIN_DWELL to change how long a colour is held before the next change.")
			logger.Info("LIGHT_TYPE selects the light backend. Valid values are: [IRTOY, LIFX]")
			logger.Info("Press Ctrl+C to stop")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			lightService, err := newLightService(config)
			if err != nil {
				return err
			}

			client := buildbot.NewClient(config.BuildbotURL, config.BuilderName, config.HTTPTimeout)
			p := poller.New(poller.Config{
				Interval:         config.PollInterval,
				FailureThreshold: config.FailureThreshold,
				MinDwell:         config.MinDwell,
			}, client, lightService)

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-shutdown
				logger.Info("Shutting down")
				cancel()
			}()

			lightService.Start(ctx)
			p.Run(ctx)
			lightService.Stop()
			return nil
		},
	}
}

func newLightService(config runConfig) (lights.LightService, error) {
	switch config.LightType {
	case "IRTOY":
		return irtoy.New(irtoy.Config{
			SerialPort:  config.SerialPort,
			ButtonsFile: config.ButtonsFile,
		})
	case "LIFX":
		return lifx.New(lifx.Config{
			GroupName:     config.LightGroupName,
			MinBrightness: config.MinBrightness,
			MaxBrightness: config.MaxBrightness,
		})
	default:
		return nil, fmt.Errorf("unknown light type: %v", config.LightType)
	}
}
