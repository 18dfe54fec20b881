package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
	appmodel "jarvis/model"
)

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleResize(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		if !a.dataModel.IsLoading {
			return a, nil
		}
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		a.updateViewportContent(true)
		return a, cmd

	case appmodel.ChatResultMsg:
		before := len(a.dataModel.Messages)
		cmd := a.dataModel.HandleChatResult(msg)
		a.updateViewportContent(true)
		return a, tea.Batch(cmd, a.renderFrom(before))

	case appmodel.StatusMsg:
		a.dataModel.HandleStatus(msg)
		return a, appmodel.WaitForStatus(a.statusUpdates())

	case appmodel.ConfigReloadedMsg:
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] settings reloaded")
		}
		a.dataModel.ApplyConfig(msg.Config)
		a.notice = "Settings reloaded"
		return a, appmodel.WaitForConfig(a.configUpdates)

	case appmodel.RecordingStartedMsg:
		return a, a.dataModel.HandleRecordingStarted(msg)

	case appmodel.CaptureEndedMsg:
		return a, a.dataModel.HandleCaptureEnded(msg)

	case appmodel.LiveTranscriptMsg:
		text, cmd := a.dataModel.HandleLiveTranscript(msg)
		if text != "" {
			a.setInput(text)
		}
		return a, cmd

	case appmodel.TranscriptionResultMsg:
		if text, ok := a.dataModel.HandleTranscription(msg); ok {
			a.setInput(text)
		}
		return a, nil

	case appmodel.ContactSentMsg:
		a = a.handleContactSent(msg)
		return a, nil

	case appmodel.MarkdownRenderedMsg:
		a.applyRendered(msg)
		a.updateViewportContent(false)
		return a, nil

	case flashTickMsg:
		return a.handleFlashTick()
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	widthChanged := msg.Width != a.width
	a.width = msg.Width
	a.height = msg.Height

	viewportHeight := a.height - chromeHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	a.viewport.Width = a.width
	a.viewport.Height = viewportHeight
	a.textarea.SetWidth(a.width)

	a.ready = true
	a.updateViewportContent(true)

	// Markdown is wrapped to the width, so a new width means a new render.
	if widthChanged {
		return a, a.renderAll()
	}
	return a, nil
}

func (a *AppView) setInput(text string) {
	a.textarea.SetValue(text)
	a.textarea.CursorEnd()
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit works from everywhere.
	if msg.String() == "ctrl+c" || a.isAction(msg, "quit") {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] %s pressed - quitting", msg.String())
		}
		a.Teardown()
		return a, tea.Quit
	}

	if a.showInfoModal {
		if msg.String() == "enter" || msg.String() == "esc" {
			a.showInfoModal = false
		}
		return a, nil
	}

	if a.showHelp {
		if msg.String() == "esc" || a.isAction(msg, "help") {
			a.showHelp = false
		}
		return a, nil
	}

	if a.showContact {
		return a.handleContactUpdate(msg)
	}

	if a.showMessageSearch {
		return a.handleMessageSearchUpdate(msg)
	}

	if a.showAbout {
		if msg.String() == "esc" || a.isAction(msg, "about") {
			a.showAbout = false
		}
		return a, nil
	}

	a.notice = ""

	switch {
	case a.isAction(msg, "help"):
		a.closeAllModals()
		a.showHelp = true
		return a, nil

	case a.isAction(msg, "about"):
		a.closeAllModals()
		a.showAbout = true
		return a, nil

	case a.isAction(msg, "contact"):
		a.closeAllModals()
		return a.openContact()

	case a.isAction(msg, "search_messages"):
		a.closeAllModals()
		return a.openMessageSearch()

	case a.isAction(msg, "new_session"):
		a.dataModel.StartNewSession()
		a.highlightedMessageIdx = -1
		a.updateViewportContent(true)
		return a, a.renderAll()

	case a.isAction(msg, "cancel_request"):
		cmd := a.dataModel.Cancel()
		a.updateViewportContent(true)
		return a, cmd

	case a.isAction(msg, "record"):
		return a, a.dataModel.ToggleRecording()

	case a.isAction(msg, "clear_input"):
		a.textarea.Reset()
		return a, nil

	case a.isAction(msg, "force_online"):
		if a.status != nil {
			a.status.ForceOnline()
		}
		return a, nil

	case a.isAction(msg, "probe_now"):
		if a.dataModel.Prober == nil || !a.dataModel.Prober.Trigger() {
			a.notice = "Status check not available right now"
			return a, nil
		}
		a.notice = "Checking server status..."
		return a, nil

	case a.isAction(msg, "yank_last_response"):
		if last, ok := a.dataModel.LastAssistantMessage(); ok {
			a.copyToClipboard(last.Content, "Copied last response")
		}
		return a, nil

	case a.isAction(msg, "yank_conversation"):
		a.copyToClipboard(a.dataModel.ConversationText(), "Copied conversation")
		return a, nil

	case a.isAction(msg, "scroll_down"), a.isAction(msg, "scroll_down_arrow"):
		a.viewport.LineDown(1)
		return a, nil

	case a.isAction(msg, "scroll_up"), a.isAction(msg, "scroll_up_arrow"):
		a.viewport.LineUp(1)
		return a, nil

	case a.isAction(msg, "half_page_down"):
		a.viewport.HalfViewDown()
		return a, nil

	case a.isAction(msg, "half_page_up"):
		a.viewport.HalfViewUp()
		return a, nil

	case a.isAction(msg, "page_down"), msg.String() == "pgdown":
		a.viewport.ViewDown()
		return a, nil

	case a.isAction(msg, "page_up"), msg.String() == "pgup":
		a.viewport.ViewUp()
		return a, nil

	case a.isAction(msg, "scroll_to_top"):
		a.viewport.GotoTop()
		return a, nil

	case a.isAction(msg, "scroll_to_bottom"):
		a.viewport.GotoBottom()
		return a, nil

	case msg.String() == "enter":
		return a.submit()
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) submit() (tea.Model, tea.Cmd) {
	// Submission is disabled while a request is outstanding.
	if a.dataModel.IsLoading {
		return a, nil
	}

	text := a.textarea.Value()
	index := len(a.dataModel.Messages)
	cmd := a.dataModel.Submit(text)
	if cmd == nil {
		// Blank input or offline: Error (if any) is shown, the input is kept.
		a.updateViewportContent(true)
		return a, nil
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Enter pressed - sending %d chars", len(text))
	}

	a.textarea.Reset()
	a.loadingSpinner = newLoadingSpinner()
	a.updateViewportContent(true)

	return a, tea.Batch(
		cmd,
		a.loadingSpinner.Tick,
		a.renderFrom(index),
	)
}

func (a *AppView) copyToClipboard(text, notice string) {
	if err := clipboardWrite(text); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] clipboard write failed: %v", err)
		}
		a.notice = "Clipboard unavailable"
		return
	}
	a.notice = notice
}
