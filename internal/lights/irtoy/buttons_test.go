package irtoy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/akm/buildbot-lights/lights"
)

func TestStoreLoadsRecorderFormat(t *testing.T) {
	// The exact shape the recorder has always written: arrays of byte values.
	path := filepath.Join(t.TempDir(), "buttons.json")
	content := `{"red": [118, 32, 255, 255], "on": [118, 33, 255, 255]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	code, ok := store.Code("red")
	if !ok {
		t.Fatal(`Code("red") not found`)
	}
	if want := []byte{118, 32, 255, 255}; !bytes.Equal(code, want) {
		t.Errorf(`Code("red") = % x, want % x`, code, want)
	}
	if _, ok := store.Code("green"); ok {
		t.Error(`Code("green") found despite not being recorded`)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load() on missing file error = %v, want nil", err)
	}
	if store.ColorButtonCount() != 0 {
		t.Errorf("ColorButtonCount() = %d, want 0", store.ColorButtonCount())
	}
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "buttons.json")
	store := NewStore(path)
	store.SetCode("green", []byte{0x01, 0x02, 0xFF, 0xFF})
	store.SetCode("off", []byte{0x03, 0x04, 0xFF, 0xFF})
	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	code, ok := reloaded.Code("green")
	if !ok || !bytes.Equal(code, []byte{0x01, 0x02, 0xFF, 0xFF}) {
		t.Errorf(`reloaded Code("green") = % x, ok %v`, code, ok)
	}
}

func TestNearestColorButton(t *testing.T) {
	store := NewStore("unused.json")
	for _, name := range []string{"red", "green", "blue", "white", "orange", "purple"} {
		store.SetCode(name, []byte{0x01, 0x02, 0xFF, 0xFF})
	}

	tests := []struct {
		name  string
		color lights.Color
		want  string
	}{
		{"exact green", lights.Color{Green: 0xFF}, "green"},
		{"exact red", lights.Color{Red: 0xFF}, "red"},
		{"exact blue", lights.Color{Blue: 0xFF}, "blue"},
		{"exact white", lights.Color{Red: 0xFF, Green: 0xFF, Blue: 0xFF}, "white"},
		{"build orange", lights.Color{Red: 0xFF, Green: 0x80}, "orange"},
		{"exception purple", lights.Color{Red: 0x80, Blue: 0xFF}, "purple"},
		{"greenish", lights.Color{Red: 0x0A, Green: 0xC8, Blue: 0x0A}, "green"},
		{"dark red", lights.Color{Red: 0x90, Green: 0x10, Blue: 0x10}, "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.NearestColorButton(tt.color)
			if err != nil {
				t.Fatalf("NearestColorButton() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NearestColorButton(%+v) = %q, want %q", tt.color, got, tt.want)
			}
		})
	}
}

func TestNearestColorButtonIgnoresUnrecorded(t *testing.T) {
	store := NewStore("unused.json")
	store.SetCode("red", []byte{0x01, 0x02, 0xFF, 0xFF})

	// Green is not recorded, so even pure green lands on the only option.
	got, err := store.NearestColorButton(lights.Color{Green: 0xFF})
	if err != nil {
		t.Fatalf("NearestColorButton() error = %v", err)
	}
	if got != "red" {
		t.Errorf("NearestColorButton() = %q, want %q", got, "red")
	}
}

func TestNearestColorButtonNoColorsRecorded(t *testing.T) {
	store := NewStore("unused.json")
	store.SetCode("on", []byte{0x01, 0x02, 0xFF, 0xFF}) // power is not a colour

	if _, err := store.NearestColorButton(lights.Color{Green: 0xFF}); err == nil {
		t.Fatal("NearestColorButton() with no colour buttons returned nil error")
	}
}
