// Package irtoy drives an IR-remote-controlled RGB globe or strip through an
// IR Toy USB-serial transmitter.
package irtoy

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/akm/buildbot-lights/internal/logging"
	"github.com/akm/buildbot-lights/lights"
)

var logger = logging.New("irtoy")

type Config struct {
	SerialPort  string
	ButtonsFile string
}

// Lights implements lights.LightService for a single IR globe/strip. The
// globe only has the fixed palette on its remote, so SetColor quantises the
// requested RGB to the nearest recorded colour button.
type Lights struct {
	device  *Device
	buttons *Store

	mu         sync.Mutex
	lastButton string
}

func New(config Config) (*Lights, error) {
	device, err := Open(config.SerialPort)
	if err != nil {
		return nil, err
	}

	store := NewStore(config.ButtonsFile)
	if err := store.Load(); err != nil {
		device.Close()
		return nil, err
	}

	return newLights(device, store), nil
}

func newLights(device *Device, buttons *Store) *Lights {
	return &Lights{
		device:  device,
		buttons: buttons,
	}
}

// Start powers the globe on and sets it white, and begins watching the
// button file for re-recorded codes. Power-on failures are logged rather
// than returned: the loop will keep retrying colour writes anyway.
func (l *Lights) Start(ctx context.Context) {
	if err := l.buttons.Watch(ctx); err != nil {
		logger.With(zap.Error(err)).Warn("Button file watching disabled")
	}

	logger.With(zap.String("protocolVersion", l.device.ProtocolVersion())).
		Info("Turning lights on")
	if err := l.press("on"); err != nil {
		logger.With(zap.Error(err)).Error("Failed to turn lights on")
	}
	if err := l.press("white"); err != nil {
		logger.With(zap.Error(err)).Error("Failed to set startup color")
	}
}

// Stop turns the globe off and releases the serial port.
func (l *Lights) Stop() {
	logger.Info("Turning lights off")
	if err := l.press("off"); err != nil {
		logger.With(zap.Error(err)).Error("Failed to turn lights off")
	}
	if err := l.device.Close(); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to close serial port")
	}
}

// LightCount reports 1 once at least one colour button has been recorded;
// until then there is nothing the globe can display.
func (l *Lights) LightCount() int {
	if l.buttons.ColorButtonCount() == 0 {
		return 0
	}
	return 1
}

func (l *Lights) SetColor(ctx context.Context, color lights.Color) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := l.buttons.NearestColorButton(color)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Distinct RGB values can quantise to the same button; pressing it again
	// would make some globes cycle brightness.
	if name == l.lastButton {
		return nil
	}

	logger.With(zap.Any("color", color), zap.String("button", name)).
		Debug("Setting globe color")
	if err := l.press(name); err != nil {
		return err
	}
	l.lastButton = name
	return nil
}

func (l *Lights) press(name string) error {
	code, ok := l.buttons.Code(name)
	if !ok {
		return &ButtonNotRecordedError{Name: name, Path: l.buttons.path}
	}
	return l.device.Transmit(code)
}

type ButtonNotRecordedError struct {
	Name string
	Path string
}

func (e *ButtonNotRecordedError) Error() string {
	return "button \"" + e.Name + "\" not recorded in " + e.Path
}
