package speech

import (
	"bytes"
	"context"
	"sync"

	"jarvis/config"
)

type RecorderState int

const (
	Idle RecorderState = iota
	Recording
	Stopped
)

func (s RecorderState) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Recorder owns one Source for the length of a recording and accumulates
// the chunks it produces. The source is released on every exit path: Stop,
// Close, or a failed Start.
type Recorder struct {
	src Source

	mu      sync.Mutex
	state   RecorderState
	buf     bytes.Buffer
	onChunk func([]byte)
}

func NewRecorder(src Source) *Recorder {
	return &Recorder{src: src}
}

// OnChunk registers fn to receive a copy of every chunk as it arrives. It must
// be set before Start.
func (r *Recorder) OnChunk(fn func([]byte)) {
	r.mu.Lock()
	r.onChunk = fn
	r.mu.Unlock()
}

func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done closes when the underlying capture ends, including when it fails on
// its own.
func (r *Recorder) Done() <-chan struct{} {
	return r.src.Done()
}

// Write implements io.Writer for the source.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return len(p), nil
	}
	r.buf.Write(p)
	fn := r.onChunk
	r.mu.Unlock()

	if fn != nil {
		chunk := make([]byte, len(p))
		copy(chunk, p)
		fn(chunk)
	}
	return len(p), nil
}

// Start moves Idle or Stopped to Recording and opens the source.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == Recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.buf.Reset()
	r.state = Recording
	r.mu.Unlock()

	if err := r.src.Start(ctx, r); err != nil {
		r.mu.Lock()
		r.state = Idle
		r.mu.Unlock()
		_ = r.src.Stop()
		return err
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Speech] recorder: recording")
	}
	return nil
}

// Stop releases the source and returns everything captured. Audio captured
// before a source failure is still returned alongside the error.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.mu.Unlock()

	// Stop drains the source into Write, so the lock must not be held here.
	srcErr := r.src.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Stopped
	audio := make([]byte, r.buf.Len())
	copy(audio, r.buf.Bytes())
	r.buf.Reset()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Speech] recorder: stopped with %d bytes (source: %v)", len(audio), srcErr)
	}
	return audio, srcErr
}

// Close releases the source and discards captured audio.
func (r *Recorder) Close() error {
	r.mu.Lock()
	recording := r.state == Recording
	r.state = Idle
	r.buf.Reset()
	r.mu.Unlock()

	if recording {
		return r.src.Stop()
	}
	return nil
}
