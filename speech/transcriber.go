package speech

import (
	"context"
	"strings"
	"time"

	"jarvis/config"
	"jarvis/transport"
)

type Phase int

const (
	Uploading Phase = iota
	Polling
	Completed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Uploading:
		return "uploading"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	default:
		return "failed"
	}
}

// TranscribeClient is the part of the backend client transcription uses.
type TranscribeClient interface {
	Transcribe(ctx context.Context, audio []byte) (*transport.TranscribeResult, error)
	TranscriptStatus(ctx context.Context, id string) (*transport.TranscriptJob, error)
}

type TranscriberOptions struct {
	MinAudioBytes int
	PollInterval  time.Duration
	Timeout       time.Duration

	// OnPhase, if set, is called on every phase change.
	OnPhase func(Phase)
}

func TranscriberOptionsFromConfig(cfg *config.Config) TranscriberOptions {
	return TranscriberOptions{
		MinAudioBytes: cfg.MinAudioBytes,
		PollInterval:  cfg.PollInterval,
		Timeout:       cfg.TranscribeTimeout,
	}
}

type Transcriber struct {
	client TranscribeClient
	opts   TranscriberOptions
}

func NewTranscriber(client TranscribeClient, opts TranscriberOptions) *Transcriber {
	if opts.MinAudioBytes <= 0 {
		opts.MinAudioBytes = 1024
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Transcriber{client: client, opts: opts}
}

// Validate rejects audio that is not worth uploading.
func (t *Transcriber) Validate(audio []byte) error {
	if len(audio) == 0 {
		return ErrNoAudio
	}
	if len(audio) < t.opts.MinAudioBytes {
		return ErrTooShort
	}
	return nil
}

func (t *Transcriber) phase(p Phase) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Speech] transcription %s", p)
	}
	if t.opts.OnPhase != nil {
		t.opts.OnPhase(p)
	}
}

// Transcribe uploads audio and returns its transcript, polling the backend
// when it answers with an asynchronous job. Audio failing Validate never
// reaches the network.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := t.Validate(audio); err != nil {
		return "", err
	}

	t.phase(Uploading)
	result, err := t.client.Transcribe(ctx, audio)
	if err != nil {
		t.phase(Failed)
		return "", err
	}

	if !result.Pending() {
		t.phase(Completed)
		return strings.TrimSpace(result.Transcript), nil
	}

	t.phase(Polling)
	transcript, err := t.poll(ctx, result.ID)
	if err != nil {
		t.phase(Failed)
		return "", err
	}
	t.phase(Completed)
	return transcript, nil
}

func (t *Transcriber) poll(ctx context.Context, id string) (string, error) {
	deadline := time.NewTimer(t.opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", transport.ErrAborted
		case <-deadline.C:
			return "", ErrTranscriptionTimeout
		case <-ticker.C:
		}

		job, err := t.client.TranscriptStatus(ctx, id)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case transport.JobCompleted:
			return strings.TrimSpace(job.Transcript), nil
		case transport.JobError:
			return "", &TranscriptionError{JobID: id, Reason: job.Error}
		}
	}
}
