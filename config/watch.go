package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the configuration when settings.toml or keybindings.toml
// change on disk and publishes each successfully parsed result on Updates.
// Parse failures are logged and the previous configuration stays in effect.
type Watcher struct {
	settingsPath string
	watcher      *fsnotify.Watcher
	updates      chan *Config
	load         func(string) (*Config, error)
	overrides    []func(*Config)
}

// NewWatcher watches the directory holding settingsPath. Editors often replace
// files rather than write them in place, so the directory is watched instead of
// the file.
func NewWatcher(settingsPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(settingsPath)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		settingsPath: settingsPath,
		watcher:      fw,
		updates:      make(chan *Config, 1),
		load:         LoadFrom,
	}, nil
}

// Override registers fn to run on every reloaded configuration before it is
// published. Command line flags use it so a reload cannot undo them. It must
// be called before Run.
func (w *Watcher) Override(fn func(*Config)) {
	w.overrides = append(w.overrides, fn)
}

// Updates delivers reloaded configurations. It is closed when Run returns.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.updates)
	defer w.watcher.Close()

	settingsName := filepath.Base(w.settingsPath)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != settingsName && name != "keybindings.toml" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if DebugLog != nil {
				DebugLog.Printf("[Config] watcher error: %v", err)
			}

		case <-fire:
			fire = nil
			cfg, err := w.load(w.settingsPath)
			if err != nil {
				if DebugLog != nil {
					DebugLog.Printf("[Config] reload failed, keeping previous settings: %v", err)
				}
				continue
			}
			for _, fn := range w.overrides {
				fn(cfg)
			}
			if DebugLog != nil {
				DebugLog.Printf("[Config] reloaded %s", w.settingsPath)
			}
			// Drop a stale unread update so the newest one wins.
			select {
			case <-w.updates:
			default:
			}
			select {
			case w.updates <- cfg:
			case <-ctx.Done():
				return
			}
		}
	}
}
