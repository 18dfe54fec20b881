package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jarvis/config"
	appmodel "jarvis/model"
	"jarvis/monitor"
)

// StatusSource is the part of the status monitor the chat screen drives.
type StatusSource interface {
	Updates() <-chan monitor.Status
	ForceOnline()
	Stop()
}

// Header (title + status) 2 lines, blank 1, info line 1, textarea 3, status bar 1.
const chromeHeight = 8

type AppView struct {
	// Reference to core data model
	dataModel *appmodel.Model

	status        StatusSource
	configUpdates <-chan *config.Config

	// UI Components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	showHelp  bool
	showAbout bool

	showContact bool
	contact     contactState

	showInfoModal  bool
	infoModalTitle string
	infoModalMsg   string

	showMessageSearch      bool
	messageSearchInput     textinput.Model
	messageSearchResults   []messageMatch
	selectedSearchIdx      int
	messageSearchScrollIdx int

	highlightedMessageIdx int
	highlightFlashCount   int
	messageOffsets        []int

	// notice is a one-line confirmation such as "Copied to clipboard".
	notice string
}

// NewAppView builds the chat screen. status and configUpdates may be nil when
// status monitoring or settings reload are disabled.
func NewAppView(dataModel *appmodel.Model, status StatusSource, configUpdates <-chan *config.Config) AppView {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter for newline, Enter alone sends (handled in Update)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	messageSearchInput := textinput.New()
	messageSearchInput.Prompt = "Search: "
	messageSearchInput.CharLimit = 100

	if status == nil {
		dataModel.ServerStatus = monitor.Status{State: monitor.Checking, Message: "Status monitoring disabled"}
	}

	return AppView{
		dataModel:             dataModel,
		status:                status,
		configUpdates:         configUpdates,
		textarea:              ta,
		viewport:              viewport.New(0, 0),
		loadingSpinner:        newLoadingSpinner(),
		contact:               newContactState(),
		messageSearchInput:    messageSearchInput,
		highlightedMessageIdx: -1,
	}
}

func newLoadingSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	return s
}

// Model exposes the session controller, mainly for teardown by the caller.
func (a AppView) Model() *appmodel.Model {
	return a.dataModel
}

func (a AppView) statusUpdates() <-chan monitor.Status {
	if a.status == nil {
		return nil
	}
	return a.status.Updates()
}

func (a AppView) Init() tea.Cmd {
	// Markdown waits for the first WindowSizeMsg to know the width.
	return tea.Batch(
		textarea.Blink,
		appmodel.WaitForStatus(a.statusUpdates()),
		appmodel.WaitForConfig(a.configUpdates),
	)
}

func (a AppView) View() string {
	if !a.ready {
		return "Starting Jarvis..."
	}

	// Modal layers, top first
	if a.showInfoModal {
		return a.renderInfoModal(a.width, a.height)
	}
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}
	if a.showContact {
		return a.renderContactModal(a.width, a.height)
	}
	if a.showMessageSearch {
		return a.renderMessageSearch(a.messageSearchInput, a.messageSearchResults, a.selectedSearchIdx, a.messageSearchScrollIdx, a.width, a.height)
	}
	if a.showAbout {
		return a.renderAboutModal(a.width, a.height)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderTitle(),
		a.renderStatusBanner(),
		"",
		a.viewport.View(),
		a.renderInfoLine(),
		a.textarea.View(),
		a.renderStatusBar(),
	)
}

func (a AppView) renderTitle() string {
	title := AssistantStyle.Bold(true).Render("Jarvis") + TitleStyle.Render(" - AI Assistant")
	if a.dataModel.SessionID != "" {
		title += DimStyle.Render(" | session " + truncate(a.dataModel.SessionID, 12))
	}
	return title
}

func (a AppView) renderStatusBanner() string {
	s := a.dataModel.ServerStatus
	style := statusStyle(s)
	state := s.State.String()
	label := "● " + strings.ToUpper(state[:1]) + state[1:]
	if s.Forced {
		label += " (forced)"
	}
	line := style.Render(label) + "  " + DimStyle.Render(s.Message)
	if !s.CheckedAt.IsZero() {
		line += DimStyle.Render(s.CheckedAt.Format("  [15:04:05]"))
	}
	return line
}

// renderInfoLine shows, in priority order, the request error, speech state,
// or the last notice.
func (a AppView) renderInfoLine() string {
	width := a.width - 2
	m := a.dataModel
	switch {
	case m.Error != "":
		return ErrorStyle.Render(truncate("⚠ "+m.Error, width))
	case m.Recording:
		hint := fmt.Sprintf("Listening... press %s to stop", a.formatKeyDisplay("record"))
		return RecordingStyle.Render(truncate("● "+hint, width))
	case m.Transcribing:
		return DimStyle.Render("Transcribing...")
	case m.SpeechError != "":
		return ErrorStyle.Render(truncate(m.SpeechError, width))
	case a.notice != "":
		return DimStyle.Render(truncate(a.notice, width))
	}
	return ""
}

func (a AppView) renderStatusBar() string {
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	sendLabel := "Send"
	if a.dataModel.IsLoading {
		sendLabel = "Wait"
	}
	parts := []string{
		a.formatKeyDisplay("quit") + " " + descStyle.Render("Quit"),
		"Enter " + descStyle.Render(sendLabel),
		a.formatKeyDisplay("cancel_request") + " " + descStyle.Render("Cancel"),
		a.formatKeyDisplay("new_session") + " " + descStyle.Render("New"),
		a.formatKeyDisplay("record") + " " + descStyle.Render("Record"),
		a.formatKeyDisplay("search_messages") + " " + descStyle.Render("Search"),
		a.formatKeyDisplay("help") + " " + descStyle.Render("Help"),
	}

	// Drop hints from the right until the bar fits.
	bar := ""
	for i := len(parts); i > 0; i-- {
		bar = strings.Join(parts[:i], "  ")
		if lipgloss.Width(bar) <= a.width || i == 1 {
			break
		}
	}
	return StatusStyle.Render(bar)
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.showAbout = false
	a.showInfoModal = false
	if a.showContact {
		*a = a.closeContact()
	}
	if a.showMessageSearch {
		*a = a.closeMessageSearch()
	}
}

// Teardown stops the monitor, releases the microphone and cancels the
// in-flight request. It is safe to call more than once.
func (a *AppView) Teardown() {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] teardown")
	}
	a.dataModel.Teardown()
	if a.status != nil {
		a.status.Stop()
	}
}
