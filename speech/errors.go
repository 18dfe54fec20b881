package speech

import (
	"errors"
	"fmt"

	"jarvis/transport"
)

var (
	ErrNoAudio              = errors.New("no audio was recorded")
	ErrTooShort             = errors.New("audio recording is too short")
	ErrTranscriptionTimeout = errors.New("transcription timed out")
	ErrMicrophone           = errors.New("could not access microphone")
	ErrNotRecording         = errors.New("not recording")
	ErrAlreadyRecording     = errors.New("already recording")
)

// TranscriptionError is a job the backend reported as failed.
type TranscriptionError struct {
	JobID  string
	Reason string
}

func (e *TranscriptionError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "Unknown error"
	}
	return fmt.Sprintf("transcription failed: %s", reason)
}

// UserMessage turns a capture or transcription error into the text shown
// next to the record control.
func UserMessage(err error) string {
	var trErr *TranscriptionError
	var upErr *transport.UploadError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAudio):
		return "No audio was recorded. Please try again."
	case errors.Is(err, ErrTooShort):
		return "Audio recording is too short. Please speak for at least a few seconds."
	case errors.Is(err, ErrMicrophone):
		return "Could not access microphone. Please check permissions."
	case errors.Is(err, ErrTranscriptionTimeout):
		return "Transcription timed out. Please try again."
	case errors.As(err, &trErr):
		reason := trErr.Reason
		if reason == "" {
			reason = "Unknown error"
		}
		return "Transcription failed: " + reason
	case errors.As(err, &upErr):
		return "Failed to upload audio. Please try again."
	case errors.Is(err, transport.ErrTimeout):
		return "Transcription timed out. Please try again."
	default:
		return "Failed to process audio. Please try again."
	}
}
