// Package status maps build status values to light colors.
package status

import (
	"github.com/akm/buildbot-lights/internal/buildbot"
	"github.com/akm/buildbot-lights/lights"
)

var (
	green  = lights.Color{Green: 0xFF}
	red    = lights.Color{Red: 0xFF}
	orange = lights.Color{Red: 0xFF, Green: 0x80}
	purple = lights.Color{Red: 0x80, Blue: 0xFF}
	blue   = lights.Color{Blue: 0xFF}
	white  = lights.Color{Red: 0xFF, Green: 0xFF, Blue: 0xFF}
)

// ColorFor returns the display color for a build status. Total over all
// status values: anything unrecognized gets the same default as unknown.
func ColorFor(s buildbot.Status) lights.Color {
	switch s {
	case buildbot.StatusSuccess:
		return green
	case buildbot.StatusFailure:
		return red
	case buildbot.StatusBuilding:
		return orange
	case buildbot.StatusException:
		return purple
	case buildbot.StatusOffline:
		return blue
	default:
		return white
	}
}
