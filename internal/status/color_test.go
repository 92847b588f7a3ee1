package status

import (
	"testing"

	"github.com/akm/buildbot-lights/internal/buildbot"
	"github.com/akm/buildbot-lights/lights"
)

func TestColorForAllStatuses(t *testing.T) {
	tests := []struct {
		status buildbot.Status
		want   lights.Color
	}{
		{buildbot.StatusSuccess, lights.Color{Green: 0xFF}},
		{buildbot.StatusFailure, lights.Color{Red: 0xFF}},
		{buildbot.StatusBuilding, lights.Color{Red: 0xFF, Green: 0x80}},
		{buildbot.StatusException, lights.Color{Red: 0x80, Blue: 0xFF}},
		{buildbot.StatusOffline, lights.Color{Blue: 0xFF}},
		{buildbot.StatusUnknown, lights.Color{Red: 0xFF, Green: 0xFF, Blue: 0xFF}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := ColorFor(tt.status); got != tt.want {
				t.Errorf("ColorFor(%v) = %+v, want %+v", tt.status, got, tt.want)
			}
		})
	}
}

func TestColorForIsTotalAndDeterministic(t *testing.T) {
	// Values outside the enum must still get the unknown default, every time.
	def := ColorFor(buildbot.StatusUnknown)
	for i := 0; i < 10; i++ {
		if got := ColorFor(buildbot.Status("definitely-not-a-status")); got != def {
			t.Fatalf("ColorFor(unrecognized) = %+v, want default %+v", got, def)
		}
		if got := ColorFor(buildbot.StatusUnknown); got != def {
			t.Fatalf("ColorFor(unknown) not deterministic: got %+v, want %+v", got, def)
		}
	}
}
