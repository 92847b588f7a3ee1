package lights

import (
	"context"
)

// Color is an 8-bit-per-channel RGB value.
type Color struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

// LightService is the narrow capability the status loop depends on. Concrete
// drivers (IR Toy globe, LIFX) implement it; callers never see the transport.
type LightService interface {
	Start(ctx context.Context)
	Stop()
	LightCount() int
	SetColor(ctx context.Context, color Color) error
}
