package speech

import (
	"context"
	"sync"
	"time"
)

// SilenceDetector reports when no speech has been heard for longer than the
// threshold. The clock starts when the detector is created or Reset.
type SilenceDetector struct {
	threshold time.Duration
	tick      time.Duration
	now       func() time.Time

	mu         sync.Mutex
	lastSpeech time.Time
}

func NewSilenceDetector(threshold, tick time.Duration) *SilenceDetector {
	if threshold <= 0 {
		threshold = 500 * time.Millisecond
	}
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	d := &SilenceDetector{threshold: threshold, tick: tick, now: time.Now}
	d.Reset()
	return d
}

// Reset restarts the silence clock, as if speech was just heard.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	d.lastSpeech = d.now()
	d.mu.Unlock()
}

// Speech records a speech event.
func (d *SilenceDetector) Speech() {
	d.Reset()
}

// Silent reports whether the silence has lasted longer than the threshold.
func (d *SilenceDetector) Silent() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now().Sub(d.lastSpeech) > d.threshold
}

// Wait checks every tick and returns true once silence is detected, or false
// if ctx ends first.
func (d *SilenceDetector) Wait(ctx context.Context) bool {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if d.Silent() {
				return true
			}
		}
	}
}
