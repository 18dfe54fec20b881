package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"jarvis/config"
	"jarvis/transport"
)

// TranscriptStream is a live recognition connection.
type TranscriptStream interface {
	SendAudio(chunk []byte) error
	Finish() error
	Events() <-chan transport.TranscriptEvent
	Err() error
	Close() error
}

type DialFunc func(ctx context.Context) (TranscriptStream, error)

// StreamDialer opens live streams on the backend client.
func StreamDialer(c *transport.Client) DialFunc {
	return func(ctx context.Context) (TranscriptStream, error) {
		s, err := c.OpenTranscriptStream(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type LiveOptions struct {
	SilenceThreshold time.Duration
	SilenceTick      time.Duration

	// FinalWait bounds how long to wait for the final transcript after the
	// audio stream is finished.
	FinalWait time.Duration
}

func LiveOptionsFromConfig(cfg *config.Config) LiveOptions {
	return LiveOptions{
		SilenceThreshold: cfg.SilenceThreshold,
		SilenceTick:      cfg.SilenceTick,
	}
}

// LiveSession streams microphone audio to the backend and stops by itself
// once no speech event has arrived for SilenceThreshold.
type LiveSession struct {
	rec  *Recorder
	dial DialFunc
	opts LiveOptions

	interim  chan string
	stop     chan struct{}
	stopOnce sync.Once
}

func NewLiveSession(src Source, dial DialFunc, opts LiveOptions) *LiveSession {
	if opts.FinalWait <= 0 {
		opts.FinalWait = 2 * time.Second
	}
	return &LiveSession{
		rec:     NewRecorder(src),
		dial:    dial,
		opts:    opts,
		interim: make(chan string, 1),
		stop:    make(chan struct{}),
	}
}

// Interim carries the latest partial transcript. It is closed when Run returns.
func (l *LiveSession) Interim() <-chan string {
	return l.interim
}

// Stop ends the session early, as if silence had been detected.
func (l *LiveSession) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *LiveSession) publish(text string) {
	select {
	case <-l.interim:
	default:
	}
	select {
	case l.interim <- text:
	default:
	}
}

// Run captures and streams until silence, Stop, or the end of the stream, and
// returns the transcript. The microphone and connection are released before
// it returns.
func (l *LiveSession) Run(ctx context.Context) (string, error) {
	defer close(l.interim)

	stream, err := l.dial(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	l.rec.OnChunk(func(chunk []byte) {
		if err := stream.SendAudio(chunk); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Speech] live: dropping chunk: %v", err)
		}
	})
	if err := l.rec.Start(ctx); err != nil {
		return "", err
	}
	defer l.rec.Close()

	detector := NewSilenceDetector(l.opts.SilenceThreshold, l.opts.SilenceTick)
	silenceCtx, cancelSilence := context.WithCancel(ctx)
	defer cancelSilence()
	silent := make(chan struct{})
	go func() {
		if detector.Wait(silenceCtx) {
			close(silent)
		}
	}()

	transcript := ""
	events := stream.Events()

capture:
	for {
		select {
		case <-ctx.Done():
			return "", transport.ErrAborted
		case <-l.stop:
			break capture
		case <-silent:
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Speech] live: silence detected, stopping")
			}
			break capture
		case <-l.rec.Done():
			break capture
		case ev, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					return "", err
				}
				events = nil
				break capture
			}
			detector.Speech()
			if ev.Transcript != "" {
				transcript = ev.Transcript
				l.publish(transcript)
			}
		}
	}
	cancelSilence()

	_, recErr := l.rec.Stop()
	if errors.Is(recErr, ErrNotRecording) {
		recErr = nil
	}

	if events != nil {
		transcript = l.awaitFinal(ctx, stream, events, transcript)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" && recErr != nil {
		return "", recErr
	}
	return transcript, nil
}

func (l *LiveSession) awaitFinal(ctx context.Context, stream TranscriptStream, events <-chan transport.TranscriptEvent, transcript string) string {
	if err := stream.Finish(); err != nil {
		return transcript
	}

	timer := time.NewTimer(l.opts.FinalWait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return transcript
		case <-timer.C:
			return transcript
		case ev, ok := <-events:
			if !ok {
				return transcript
			}
			if ev.Transcript != "" {
				transcript = ev.Transcript
				l.publish(transcript)
			}
			if ev.Final {
				return transcript
			}
		}
	}
}
