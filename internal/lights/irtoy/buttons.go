package irtoy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/akm/buildbot-lights/lights"
)

// ButtonNames are the 24 buttons on the common RGB globe/strip remote.
var ButtonNames = []string{
	"brightnessDown", "brightnessUp", "off", "on",
	"red", "green", "blue", "white",
	"red2", "green2", "blue2", "flash",
	"orange", "cyan", "purple", "strobe",
	"orange2", "cyan2", "violet", "fade",
	"yellow", "teal", "lavender", "smooth",
}

// colorButtons gives each colour button a reference RGB value so a requested
// color can be quantised to the closest button the remote actually has.
var colorButtons = map[string]lights.Color{
	"red":      {Red: 0xFF},
	"green":    {Green: 0xFF},
	"blue":     {Blue: 0xFF},
	"white":    {Red: 0xFF, Green: 0xFF, Blue: 0xFF},
	"red2":     {Red: 0xFF, Green: 0x30},
	"green2":   {Green: 0xFF, Blue: 0x30},
	"blue2":    {Red: 0x30, Blue: 0xFF},
	"orange":   {Red: 0xFF, Green: 0x80},
	"cyan":     {Green: 0xFF, Blue: 0xFF},
	"purple":   {Red: 0x80, Blue: 0xFF},
	"orange2":  {Red: 0xFF, Green: 0xA5},
	"cyan2":    {Green: 0xC8, Blue: 0xFF},
	"violet":   {Red: 0xB4, Blue: 0xFF},
	"yellow":   {Red: 0xFF, Green: 0xFF},
	"teal":     {Green: 0x80, Blue: 0x80},
	"lavender": {Red: 0xE6, Green: 0xBE, Blue: 0xFF},
}

// Store holds recorded IR codes keyed by button name, persisted as a JSON
// object of byte-value arrays (the format the recorder has always written).
type Store struct {
	path string

	mu      sync.RWMutex
	buttons map[string][]int
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		buttons: make(map[string][]int),
	}
}

// Load reads the button file. A missing file is not an error: nothing has
// been recorded yet.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read button file %s: %w", s.path, err)
	}

	buttons := make(map[string][]int)
	if err := json.Unmarshal(data, &buttons); err != nil {
		return fmt.Errorf("parse button file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.buttons = buttons
	s.mu.Unlock()
	return nil
}

func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.buttons, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode button file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create button file directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write button file %s: %w", s.path, err)
	}
	return nil
}

// Code returns the raw IR code for a button, if recorded.
func (s *Store) Code(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.buttons[name]
	if !ok || len(values) == 0 {
		return nil, false
	}
	code := make([]byte, len(values))
	for i, v := range values {
		code[i] = byte(v)
	}
	return code, true
}

func (s *Store) SetCode(name string, code []byte) {
	values := make([]int, len(code))
	for i, b := range code {
		values[i] = int(b)
	}

	s.mu.Lock()
	s.buttons[name] = values
	s.mu.Unlock()
}

// ColorButtonCount reports how many colour buttons have a recorded code.
func (s *Store) ColorButtonCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for name := range colorButtons {
		if len(s.buttons[name]) > 0 {
			count++
		}
	}
	return count
}

// NearestColorButton picks the recorded colour button closest to the
// requested color by squared RGB distance. Names are scanned in sorted order
// so ties resolve deterministically.
func (s *Store) NearestColorButton(c lights.Color) (string, error) {
	names := make([]string, 0, len(colorButtons))
	for name := range colorButtons {
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := ""
	bestDistance := 0
	for _, name := range names {
		if len(s.buttons[name]) == 0 {
			continue
		}
		d := colorDistance(c, colorButtons[name])
		if best == "" || d < bestDistance {
			best = name
			bestDistance = d
		}
	}
	if best == "" {
		return "", fmt.Errorf("no colour buttons recorded in %s", s.path)
	}
	return best, nil
}

func colorDistance(a, b lights.Color) int {
	dr := int(a.Red) - int(b.Red)
	dg := int(a.Green) - int(b.Green)
	db := int(a.Blue) - int(b.Blue)
	return dr*dr + dg*dg + db*db
}

// Watch reloads the store whenever the button file is rewritten, so freshly
// recorded codes are picked up without a restart. The watcher runs until ctx
// is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create button file watcher: %w", err)
	}
	// Watch the directory: editors and the recorder replace the file, which
	// would silently detach a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if err := s.Load(); err != nil {
					logger.With(zap.Error(err)).Warn("Failed to reload button file")
					continue
				}
				logger.With(zap.String("path", s.path)).Info("Reloaded button codes")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.With(zap.Error(err)).Warn("Button file watcher error")
			}
		}
	}()
	return nil
}
