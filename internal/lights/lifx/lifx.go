// Package lifx is the LIFX LAN backend, for build lights that are a network
// bulb group rather than an IR globe.
package lifx

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"github.com/akm/buildbot-lights/internal/logging"
	"github.com/akm/buildbot-lights/lights"
)

var logger = logging.New("lifx")

const (
	discoveryInterval = 15 * time.Second
	discoveryTimeout  = 5 * time.Second
	// Status changes are rare, so a soft fade reads better than an IR-style
	// hard cut.
	fadeDuration = 500 * time.Millisecond
)

type Config struct {
	GroupName     string
	MaxBrightness float64
	MinBrightness float64
}

type Lights struct {
	config Config
	client *golifx.Client

	groupMu sync.RWMutex
	group   common.Group
}

func New(config Config) (*Lights, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}
	client.SetDiscoveryInterval(discoveryInterval)

	return &Lights{
		config: config,
		client: client,
	}, nil
}

// Start runs group discovery in the background until ctx is cancelled.
func (l *Lights) Start(ctx context.Context) {
	go l.discoverLoop(ctx)
}

func (l *Lights) Stop() {
	if err := l.client.Close(); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to close LIFX client")
	}
}

func (l *Lights) discoverLoop(ctx context.Context) {
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	l.discover(ctx)

	for {
		select {
		case <-ticker.C:
			l.discover(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Lights) discover(ctx context.Context) {
	logger.With(zap.String("group", l.config.GroupName)).Debug("LIFX discovery starting...")

	completed := make(chan struct{})

	var g common.Group
	go func() {
		defer close(completed)
		var err error
		g, err = l.client.GetGroupByLabel(l.config.GroupName)
		if err != nil {
			logger.With(zap.Error(err)).Warn("Failed to get LIFX group by label")
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	select {
	case <-ctxWithTimeout.Done():
		logger.With(zap.Error(ctxWithTimeout.Err())).Warn("LIFX discovery timed out")
	case <-completed:
		if g != nil {
			logger.With(zap.String("group", g.GetLabel())).Debug("LIFX group found")
			l.groupMu.Lock()
			l.group = g
			l.groupMu.Unlock()
		}
	}
}

func (l *Lights) LightCount() int {
	l.groupMu.RLock()
	defer l.groupMu.RUnlock()

	if l.group == nil {
		return 0
	}
	return len(l.group.Lights())
}

func (l *Lights) SetColor(ctx context.Context, color lights.Color) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.groupMu.RLock()
	group := l.group
	l.groupMu.RUnlock()
	if group == nil {
		return common.ErrNotFound
	}

	lifxColor := adjustColor(newLifxColor(color), l.config)

	logger.With(zap.Any("color", color), zap.Any("lifxColor", lifxColor)).
		Debug("Setting LIFX group color")

	return group.SetColor(lifxColor, fadeDuration)
}

func newLifxColor(color lights.Color) common.Color {
	hue, saturation, brightness := rgbToHsb(color.Red, color.Green, color.Blue)

	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     3500,
	}
}

func adjustColor(color common.Color, config Config) common.Color {
	blackThreshold := 0.015 * 0xFFFF
	if color.Brightness <= uint16(blackThreshold) && color.Saturation <= uint16(blackThreshold) {
		// blackish color - turn off the light
		return common.Color{
			Hue:        0,
			Saturation: 0,
			Brightness: 0,
			Kelvin:     3500,
		}
	}

	color.Brightness = uint16(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(color.Brightness))))

	return color
}
