package model

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
	"jarvis/speech"
	"jarvis/transport"
)

const (
	errMsgSpeechUnavailable = "Speech input is not available. Check the [speech] section of settings.toml."
	errMsgNoSpeech          = "No speech was detected. Please try again."
)

// SpeechDeps wires the capture pipeline. Mode selects between uploading a
// finished recording and live recognition.
type SpeechDeps struct {
	Mode        string
	Source      speech.Source
	Transcriber *speech.Transcriber
	Dial        speech.DialFunc
	Live        speech.LiveOptions
}

func (d *SpeechDeps) live() bool {
	return d.Mode == config.SpeechModeLive && d.Dial != nil
}

type speechRun struct {
	ctx      context.Context
	cancel   context.CancelFunc
	recorder *speech.Recorder
	live     *speech.LiveSession
	ready    bool
}

// ToggleRecording starts a recording, or stops the current one and
// transcribes it.
func (m *Model) ToggleRecording() tea.Cmd {
	if m.Speech == nil || m.Speech.Source == nil {
		m.SpeechError = errMsgSpeechUnavailable
		return nil
	}
	if m.Transcribing {
		return nil
	}
	if m.Recording {
		return m.StopRecording()
	}
	return m.StartRecording()
}

func (m *Model) StartRecording() tea.Cmd {
	if m.Speech == nil || m.Recording || m.Transcribing {
		return nil
	}

	m.SpeechError = ""
	m.speechSeq++
	seq := m.speechSeq
	ctx, cancel := context.WithCancel(context.Background())
	run := &speechRun{ctx: ctx, cancel: cancel}
	m.capture = run
	m.Recording = true

	if m.Speech.live() {
		live := speech.NewLiveSession(m.Speech.Source, m.Speech.Dial, m.Speech.Live)
		run.live = live
		run.ready = true

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] live recognition %d started", seq)
		}
		return tea.Batch(
			func() tea.Msg {
				text, err := live.Run(ctx)
				return TranscriptionResultMsg{Seq: seq, Text: text, Err: err}
			},
			waitForInterim(seq, live.Interim()),
		)
	}

	rec := speech.NewRecorder(m.Speech.Source)
	run.recorder = rec
	return func() tea.Msg {
		return RecordingStartedMsg{Seq: seq, Err: rec.Start(ctx)}
	}
}

// HandleRecordingStarted records whether the microphone opened. Once it has,
// the returned command watches for the capture ending by itself.
func (m *Model) HandleRecordingStarted(msg RecordingStartedMsg) tea.Cmd {
	if msg.Seq != m.speechSeq || m.capture == nil {
		return nil
	}
	if msg.Err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] recording %d failed to start: %v", msg.Seq, msg.Err)
		}
		m.capture.cancel()
		m.capture = nil
		m.Recording = false
		m.SpeechError = speech.UserMessage(msg.Err)
		return nil
	}
	m.capture.ready = true
	if m.capture.recorder == nil {
		return nil
	}
	return waitForCaptureEnd(m.capture.ctx, msg.Seq, m.capture.recorder.Done())
}

func waitForCaptureEnd(ctx context.Context, seq uint64, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-done:
			return CaptureEndedMsg{Seq: seq}
		case <-ctx.Done():
			return nil
		}
	}
}

// HandleCaptureEnded deals with a recording whose capture stopped without the
// user asking, e.g. the capture command lost its device. The source error, if
// any, becomes SpeechError; audio from a clean exit is transcribed as usual.
func (m *Model) HandleCaptureEnded(msg CaptureEndedMsg) tea.Cmd {
	run := m.capture
	if msg.Seq != m.speechSeq || run == nil || run.recorder == nil || !m.Recording {
		return nil
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Model] recording %d: capture ended on its own", msg.Seq)
	}
	m.Recording = false
	m.Transcribing = true
	return m.finishRecording(msg.Seq, run, true)
}

// StopRecording ends capture. In record mode the audio is uploaded and
// transcribed; in live mode the session finishes on its own goroutine.
func (m *Model) StopRecording() tea.Cmd {
	run := m.capture
	if run == nil || !m.Recording || !run.ready {
		return nil
	}

	m.Recording = false
	m.Transcribing = true
	seq := m.speechSeq

	if run.live != nil {
		run.live.Stop()
		return nil
	}

	return m.finishRecording(seq, run, false)
}

// finishRecording stops the recorder and transcribes what it captured. A
// source error discards partial audio when the capture ended unprompted.
func (m *Model) finishRecording(seq uint64, run *speechRun, unprompted bool) tea.Cmd {
	rec := run.recorder
	transcriber := m.Speech.Transcriber
	ctx := run.ctx
	return func() tea.Msg {
		audio, err := rec.Stop()
		if err != nil && (unprompted || len(audio) == 0) {
			return TranscriptionResultMsg{Seq: seq, Err: err}
		}
		if transcriber == nil {
			return TranscriptionResultMsg{Seq: seq, Err: errors.New("no transcriber configured")}
		}
		text, err := transcriber.Transcribe(ctx, audio)
		return TranscriptionResultMsg{Seq: seq, Text: text, Err: err}
	}
}

func waitForInterim(seq uint64, ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return LiveTranscriptMsg{Seq: seq, Text: text}
	}
}

// HandleLiveTranscript returns the interim text to show and the command that
// waits for the next one.
func (m *Model) HandleLiveTranscript(msg LiveTranscriptMsg) (string, tea.Cmd) {
	if msg.Seq != m.speechSeq || m.capture == nil || m.capture.live == nil {
		return "", nil
	}
	return msg.Text, waitForInterim(msg.Seq, m.capture.live.Interim())
}

// HandleTranscription finishes a recording. It returns the transcript and
// true when there is text to place in the input box.
func (m *Model) HandleTranscription(msg TranscriptionResultMsg) (string, bool) {
	if msg.Seq != m.speechSeq || m.capture == nil {
		return "", false
	}

	m.capture.cancel()
	m.capture = nil
	m.Recording = false
	m.Transcribing = false

	if msg.Err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] transcription %d failed: %v", msg.Seq, msg.Err)
		}
		if !errors.Is(msg.Err, transport.ErrAborted) {
			m.SpeechError = speech.UserMessage(msg.Err)
		}
		return "", false
	}
	if msg.Text == "" {
		m.SpeechError = errMsgNoSpeech
		return "", false
	}

	m.SpeechError = ""
	return msg.Text, true
}

// stopSpeech releases the microphone and drops any pending transcription.
func (m *Model) stopSpeech() {
	run := m.capture
	m.capture = nil
	m.speechSeq++
	m.Recording = false
	m.Transcribing = false

	if run == nil {
		return
	}
	run.cancel()
	if run.live != nil {
		run.live.Stop()
	}
	if run.recorder != nil {
		_ = run.recorder.Close()
	}
}
