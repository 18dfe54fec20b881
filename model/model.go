package model

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
	"jarvis/monitor"
	"jarvis/transport"
)

const (
	ErrMsgFailed    = "Failed to process your request. Please try again."
	ErrMsgCancelled = "Request cancelled."
	ErrMsgOffline   = "Jarvis is offline right now. Your message was not sent. Wait for the server to come back or force online mode."
)

// Model is the session controller: it owns the conversation, the session ID
// and the request flags, and turns user intents into commands. All methods
// run on the bubbletea Update goroutine.
type Model struct {
	// Core dependencies
	Config  *config.Config
	Client  Backend
	Prober  Prober
	Speech  *SpeechDeps
	Factory BackendFactory

	// Conversation
	Messages  []Message
	SessionID string

	// Request state
	IsLoading    bool
	Error        string
	ServerStatus monitor.Status

	// Speech state
	Recording    bool
	Transcribing bool
	SpeechError  string

	Quitting bool
	Version  string

	seq    uint64
	cancel context.CancelFunc

	speechSeq uint64
	capture   *speechRun
}

func NewModel(cfg *config.Config, client Backend, prober Prober, version string) *Model {
	return &Model{
		Config:       cfg,
		Client:       client,
		Prober:       prober,
		Messages:     greetingMessages(),
		ServerStatus: monitor.Status{State: monitor.Checking, Message: monitor.MsgChecking},
		Version:      version,
	}
}

// Offline reports whether the last known server status is offline.
func (m *Model) Offline() bool {
	return m.ServerStatus.State == monitor.Offline
}

// InFlight reports whether a chat request is outstanding.
func (m *Model) InFlight() bool {
	return m.cancel != nil
}

func (m *Model) appendMessage(role, content string) {
	m.Messages = append(m.Messages, newMessage(role, content))
}

func (m *Model) requestProbe() tea.Cmd {
	if m.Prober == nil {
		return nil
	}
	prober := m.Prober
	return func() tea.Msg {
		prober.Refresh()
		return nil
	}
}

// Submit sends text as the next user message. Blank text and submissions
// while a request is in flight are ignored. While the server is known to be
// offline nothing is appended or sent and Error explains why.
func (m *Model) Submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || m.IsLoading || m.cancel != nil {
		return nil
	}
	if m.Offline() {
		m.Error = ErrMsgOffline
		return nil
	}

	m.appendMessage(RoleUser, text)
	m.IsLoading = true
	m.Error = ""

	m.seq++
	seq := m.seq
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	client := m.Client
	sessionID := m.SessionID

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Model] Submit: request %d (session %q, %d chars)", seq, sessionID, len(text))
	}

	return func() tea.Msg {
		reply, err := client.SendChat(ctx, text, sessionID)
		return ChatResultMsg{Seq: seq, Reply: reply, Err: err}
	}
}

// HandleChatResult applies the result of the in-flight request. Results from
// cancelled or superseded requests are dropped.
func (m *Model) HandleChatResult(msg ChatResultMsg) tea.Cmd {
	if msg.Seq != m.seq || m.cancel == nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] dropping stale result for request %d (current %d)", msg.Seq, m.seq)
		}
		return nil
	}

	m.cancel()
	m.cancel = nil
	m.IsLoading = false

	if errors.Is(msg.Err, transport.ErrAborted) {
		return nil
	}

	if msg.Err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] request %d failed: %v", msg.Seq, msg.Err)
		}
		m.Error = ErrMsgFailed
		if fallback, ok := transport.FallbackMessage(msg.Err); ok {
			m.appendMessage(RoleAssistant, fallback)
		}
		if transport.IsRetryable(msg.Err) {
			return m.requestProbe()
		}
		return nil
	}

	if msg.Reply == nil {
		m.Error = ErrMsgFailed
		return nil
	}

	m.appendMessage(RoleAssistant, msg.Reply.Response)
	if msg.Reply.SessionID != "" {
		m.SessionID = msg.Reply.SessionID
	}
	return nil
}

// Cancel aborts the in-flight request, if any.
func (m *Model) Cancel() tea.Cmd {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.cancel = nil
	m.IsLoading = false
	m.Error = ErrMsgCancelled

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Model] request %d cancelled", m.seq)
	}
	return m.requestProbe()
}

// StartNewSession resets the conversation to the greeting and forgets the
// session ID. Any in-flight request is cancelled first so it cannot append
// to the new session.
func (m *Model) StartNewSession() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.IsLoading = false
	m.Messages = greetingMessages()
	m.SessionID = ""
	m.Error = ""

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Model] new session")
	}
}

// HandleStatus records a status monitor update.
func (m *Model) HandleStatus(msg StatusMsg) {
	m.ServerStatus = msg.Status
	if msg.Status.State == monitor.Online && m.Error == ErrMsgOffline {
		m.Error = ""
	}
}

// ApplyConfig adopts reloaded settings. The backend client is rebuilt when
// its address or timeouts changed; a request already in flight finishes on
// the old client.
func (m *Model) ApplyConfig(cfg *config.Config) {
	old := m.Config
	m.Config = cfg

	if m.Factory == nil || old == nil {
		return
	}
	if old.APIURL == cfg.APIURL && transport.OptionsFromConfig(old) == transport.OptionsFromConfig(cfg) {
		return
	}

	client, err := m.Factory(cfg.APIURL, transport.OptionsFromConfig(cfg))
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] keeping previous client, new settings rejected: %v", err)
		}
		return
	}
	m.Client = client
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Model] backend client switched to %s", cfg.APIURL)
	}
}

// LastAssistantMessage returns the newest assistant message.
func (m *Model) LastAssistantMessage() (Message, bool) {
	for i := len(m.Messages) - 1; i >= 0; i-- {
		if m.Messages[i].Role == RoleAssistant {
			return m.Messages[i], true
		}
	}
	return Message{}, false
}

// ConversationText renders the conversation as plain text for the clipboard.
func (m *Model) ConversationText() string {
	var b strings.Builder
	for i, msg := range m.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == RoleUser {
			b.WriteString("You: ")
		} else {
			b.WriteString("Jarvis: ")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

// Teardown cancels everything the controller started.
func (m *Model) Teardown() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.IsLoading = false
	m.stopSpeech()
	m.Quitting = true
}
