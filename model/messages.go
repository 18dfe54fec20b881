package model

import (
	"jarvis/config"
	"jarvis/monitor"
	"jarvis/transport"
)

// ChatResultMsg carries the outcome of one chat request. Seq identifies the
// request so results of cancelled or superseded calls can be ignored.
type ChatResultMsg struct {
	Seq   uint64
	Reply *transport.ChatReply
	Err   error
}

type StatusMsg struct {
	Status monitor.Status
}

type ConfigReloadedMsg struct {
	Config *config.Config
}

type RecordingStartedMsg struct {
	Seq uint64
	Err error
}

// CaptureEndedMsg reports that the microphone of a record-mode recording
// stopped producing audio.
type CaptureEndedMsg struct {
	Seq uint64
}

type LiveTranscriptMsg struct {
	Seq  uint64
	Text string
}

type TranscriptionResultMsg struct {
	Seq  uint64
	Text string
	Err  error
}

type ContactSentMsg struct {
	Err error
}

// MarkdownRenderedMsg delivers the terminal rendering of a message. Source is
// the text that was rendered; a result whose Source no longer matches the
// message at MessageIndex is discarded.
type MarkdownRenderedMsg struct {
	MessageIndex int
	Source       string
	Rendered     string
}
