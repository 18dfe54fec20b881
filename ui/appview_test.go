package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/config"
	appmodel "jarvis/model"
	"jarvis/monitor"
	"jarvis/transport"
	"jarvis/transport/transporttest"
)

type fakeStatus struct {
	updates chan monitor.Status
	forced  int
	stopped int
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{updates: make(chan monitor.Status, 1)}
}

func (f *fakeStatus) Updates() <-chan monitor.Status { return f.updates }
func (f *fakeStatus) ForceOnline()                   { f.forced++ }
func (f *fakeStatus) Stop()                          { f.stopped++ }

func newTestView(t *testing.T) (AppView, *transporttest.MockClient, *fakeStatus) {
	t.Helper()
	mock := transporttest.NewMockClient()
	cfg := &config.Config{APIURL: "http://localhost", Keybindings: config.DefaultKeybindings()}
	m := appmodel.NewModel(cfg, mock, nil, "test")
	status := newFakeStatus()

	a := NewAppView(m, status, nil)
	model, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(AppView), mock, status
}

func update(t *testing.T, a AppView, msg tea.Msg) (AppView, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	return model.(AppView), cmd
}

func altKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

// collect runs cmd and any batch it expands to, returning every message.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestAppView_SubmitRoundTrip(t *testing.T) {
	a, mock, _ := newTestView(t)
	mock.SendChatFunc = func(ctx context.Context, text, sessionID string) (*transport.ChatReply, error) {
		return &transport.ChatReply{Response: "Hi there"}, nil
	}

	a.textarea.SetValue("Hello")
	a, cmd := update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, a.textarea.Value())
	assert.True(t, a.dataModel.IsLoading)
	assert.Contains(t, stripANSI(a.viewport.View()), thinkingText)

	// A second Enter while loading is ignored.
	a.textarea.SetValue("again")
	a, again := update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)
	assert.Equal(t, "again", a.textarea.Value())

	for _, msg := range collect(cmd) {
		if result, ok := msg.(appmodel.ChatResultMsg); ok {
			a, _ = update(t, a, result)
		}
	}

	require.Len(t, a.dataModel.Messages, 3)
	assert.Equal(t, "Hi there", a.dataModel.Messages[2].Content)
	assert.False(t, a.dataModel.IsLoading)
	assert.NotContains(t, stripANSI(a.viewport.View()), thinkingText)
}

func TestAppView_OfflineKeepsInput(t *testing.T) {
	a, mock, _ := newTestView(t)
	a, _ = update(t, a, appmodel.StatusMsg{Status: monitor.Status{State: monitor.Offline, Message: monitor.MsgOffline}})

	a.textarea.SetValue("Hello")
	a, cmd := update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "Hello", a.textarea.Value())
	assert.Len(t, a.dataModel.Messages, 1)
	assert.Equal(t, 0, mock.TotalCalls())

	view := stripANSI(a.View())
	assert.Contains(t, view, "Offline")
	assert.Contains(t, view, appmodel.ErrMsgOffline[:20])
}

func TestAppView_StatusMsgReissuesWait(t *testing.T) {
	a, _, status := newTestView(t)

	a, cmd := update(t, a, appmodel.StatusMsg{Status: monitor.Status{State: monitor.Online, Message: monitor.MsgOnline}})
	require.NotNil(t, cmd)
	assert.Contains(t, stripANSI(a.View()), "Online")

	status.updates <- monitor.Status{State: monitor.Offline}
	next, ok := cmd().(appmodel.StatusMsg)
	require.True(t, ok)
	assert.Equal(t, monitor.Offline, next.Status.State)
}

func TestAppView_QuitTearsDown(t *testing.T) {
	a, _, status := newTestView(t)
	a.textarea.SetValue("Hello")
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, a.dataModel.InFlight())

	a, cmd := update(t, a, altKey('q'))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, a.dataModel.Quitting)
	assert.False(t, a.dataModel.InFlight())
	assert.Equal(t, 1, status.stopped)
}

func TestAppView_ForceOnline(t *testing.T) {
	a, _, status := newTestView(t)
	update(t, a, altKey('o'))
	assert.Equal(t, 1, status.forced)
}

func TestAppView_HelpToggle(t *testing.T) {
	a, _, _ := newTestView(t)

	a, _ = update(t, a, altKey('h'))
	assert.True(t, a.showHelp)
	assert.Contains(t, stripANSI(a.View()), "Keyboard Shortcuts")

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, a.showHelp)
}

func TestAppView_NewSession(t *testing.T) {
	a, _, _ := newTestView(t)
	a.textarea.SetValue("Hello")
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	a, _ = update(t, a, altKey('n'))

	require.Len(t, a.dataModel.Messages, 1)
	assert.Equal(t, appmodel.Greeting, a.dataModel.Messages[0].Content)
	assert.False(t, a.dataModel.IsLoading)
}

func TestAppView_YankLastResponse(t *testing.T) {
	a, _, _ := newTestView(t)
	var copied string
	orig := clipboardWrite
	t.Cleanup(func() { clipboardWrite = orig })
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}

	a, _ = update(t, a, altKey('y'))
	assert.Equal(t, appmodel.Greeting, copied)
	assert.Equal(t, "Copied last response", a.notice)

	clipboardWrite = func(string) error { return errors.New("no display") }
	a, _ = update(t, a, altKey('c'))
	assert.Equal(t, "Clipboard unavailable", a.notice)
}

func TestAppView_RecordWithoutSpeech(t *testing.T) {
	a, mock, _ := newTestView(t)
	a, cmd := update(t, a, altKey('r'))
	assert.Nil(t, cmd)
	assert.NotEmpty(t, a.dataModel.SpeechError)
	assert.Equal(t, 0, mock.TotalCalls())
}

func TestAppView_MarkdownRenderedStaleIgnored(t *testing.T) {
	a, _, _ := newTestView(t)

	a, _ = update(t, a, appmodel.MarkdownRenderedMsg{MessageIndex: 0, Source: "something else", Rendered: "STALE"})
	assert.NotEqual(t, "STALE", a.dataModel.Messages[0].Rendered)

	a, _ = update(t, a, appmodel.MarkdownRenderedMsg{MessageIndex: 0, Source: appmodel.Greeting, Rendered: "FRESH"})
	assert.Equal(t, "FRESH", a.dataModel.Messages[0].Rendered)

	a, _ = update(t, a, appmodel.MarkdownRenderedMsg{MessageIndex: 7, Source: "x", Rendered: "x"})
	assert.Len(t, a.dataModel.Messages, 1)
}

func TestAppView_ContactSent(t *testing.T) {
	a, _, _ := newTestView(t)

	a, _ = update(t, a, altKey('C'))
	require.True(t, a.showContact)

	a, _ = update(t, a, appmodel.ContactSentMsg{Err: appmodel.ErrContactEmail})
	assert.True(t, a.showContact)
	assert.Equal(t, "Please enter a valid email address.", a.contact.err)

	a, _ = update(t, a, appmodel.ContactSentMsg{Err: &transport.NetworkError{Op: "contact", Err: errors.New("refused")}})
	assert.Equal(t, contactFailed, a.contact.err)

	a, _ = update(t, a, appmodel.ContactSentMsg{})
	assert.False(t, a.showContact)
	assert.True(t, a.showInfoModal)
	assert.Contains(t, stripANSI(a.View()), contactSentTitle)
}

func TestSearchMessages(t *testing.T) {
	messages := []appmodel.Message{
		{Role: appmodel.RoleAssistant, Content: appmodel.Greeting},
		{Role: appmodel.RoleUser, Content: "what is the weather in paris"},
		{Role: appmodel.RoleAssistant, Content: "It is sunny in paris today."},
	}

	assert.Empty(t, searchMessages(messages, "  "))

	results := searchMessages(messages, "paris")
	require.NotEmpty(t, results)
	var indexes []int
	for _, r := range results {
		indexes = append(indexes, r.MessageIndex)
		assert.Contains(t, r.Preview, "paris")
	}
	assert.Contains(t, indexes, 1)
	assert.Contains(t, indexes, 2)
}

func TestFrameCodeBlocks(t *testing.T) {
	in := strings.Join([]string{"before", codeBar + " x := 1", codeBar + " y := 2", "after"}, "\n")
	out := stripANSI(frameCodeBlocks(in, 30))

	assert.Contains(t, out, "[code]")
	assert.Contains(t, out, "\nx := 1\ny := 2\n")
	assert.NotContains(t, out, codeBar)
	assert.True(t, strings.HasPrefix(out, "before"))
	assert.True(t, strings.HasSuffix(out, "after"))
}

func TestWordWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wordWrap("one two three", 7))
	assert.Equal(t, "a\n\nb", wordWrap("a\n\nb", 10))
}
