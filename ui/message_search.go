package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	appmodel "jarvis/model"
)

const searchPreviewWidth = 90

type messageMatch struct {
	MessageIndex int
	Role         string
	Preview      string
	Timestamp    time.Time
	Score        int
}

type flashTickMsg struct{}

type messageSource []appmodel.Message

func (s messageSource) String(i int) string { return s[i].Content }
func (s messageSource) Len() int            { return len(s) }

// searchMessages fuzzy-matches query against the conversation, best match first.
func searchMessages(messages []appmodel.Message, query string) []messageMatch {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	found := fuzzy.FindFrom(query, messageSource(messages))
	results := make([]messageMatch, 0, len(found))
	for _, f := range found {
		msg := messages[f.Index]
		start := 0
		if len(f.MatchedIndexes) > 0 {
			start = f.MatchedIndexes[0]
		}
		results = append(results, messageMatch{
			MessageIndex: f.Index,
			Role:         msg.Role,
			Preview:      searchPreview(msg.Content, start),
			Timestamp:    msg.Timestamp,
			Score:        f.Score,
		})
	}
	return results
}

func searchPreview(content string, start int) string {
	const lead = 20
	if start > lead {
		start -= lead
	} else {
		start = 0
	}
	// Back up to a rune boundary.
	for start > 0 && start < len(content) && content[start]&0xC0 == 0x80 {
		start--
	}

	preview := strings.Join(strings.Fields(content[start:]), " ")
	if start > 0 {
		preview = "..." + preview
	}
	return truncate(preview, searchPreviewWidth)
}

func (a AppView) openMessageSearch() (AppView, tea.Cmd) {
	a.showMessageSearch = true
	a.messageSearchInput.SetValue("")
	a.messageSearchResults = nil
	a.selectedSearchIdx = 0
	a.messageSearchScrollIdx = 0
	a.textarea.Blur()
	return a, a.messageSearchInput.Focus()
}

func (a AppView) closeMessageSearch() AppView {
	a.showMessageSearch = false
	a.messageSearchInput.Blur()
	a.textarea.Focus()
	return a
}

func (a AppView) handleMessageSearchUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	switch {
	case msg.String() == "esc" || a.isAction(msg, "search_messages"):
		return a.closeMessageSearch(), nil

	case a.isAction(msg, "search_up") || a.isAction(msg, "scroll_up"):
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
		}
		if a.selectedSearchIdx < a.messageSearchScrollIdx {
			a.messageSearchScrollIdx = a.selectedSearchIdx
		}
		return a, nil

	case a.isAction(msg, "search_down") || a.isAction(msg, "scroll_down"):
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
		}
		if visible := a.visibleSearchResults(); a.selectedSearchIdx >= a.messageSearchScrollIdx+visible {
			a.messageSearchScrollIdx = a.selectedSearchIdx - visible + 1
		}
		return a, nil

	case msg.String() == "enter":
		if a.selectedSearchIdx < 0 || a.selectedSearchIdx >= len(a.messageSearchResults) {
			return a, nil
		}
		idx := a.messageSearchResults[a.selectedSearchIdx].MessageIndex
		a = a.closeMessageSearch()
		a.highlightedMessageIdx = idx
		a.highlightFlashCount = 1
		a.updateViewportContent(false)
		a.scrollToMessage(idx)

		return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
			return flashTickMsg{}
		})
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)
	a.messageSearchResults = searchMessages(a.dataModel.Messages, a.messageSearchInput.Value())
	a.selectedSearchIdx = 0
	a.messageSearchScrollIdx = 0
	return a, cmd
}

// scrollToMessage centers the message at idx in the viewport.
func (a *AppView) scrollToMessage(idx int) {
	if idx < 0 || idx >= len(a.messageOffsets) {
		return
	}
	offset := a.messageOffsets[idx] - a.viewport.Height/2
	if limit := a.viewport.TotalLineCount() - a.viewport.Height; offset > limit {
		offset = limit
	}
	if offset < 0 {
		offset = 0
	}
	a.viewport.SetYOffset(offset)
}

func (a AppView) handleFlashTick() (AppView, tea.Cmd) {
	if a.highlightedMessageIdx < 0 {
		return a, nil
	}
	a.highlightFlashCount++
	if a.highlightFlashCount > 6 {
		a.highlightedMessageIdx = -1
		a.highlightFlashCount = 0
		a.updateViewportContent(false)
		return a, nil
	}
	a.updateViewportContent(false)
	return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return flashTickMsg{}
	})
}

func (a AppView) visibleSearchResults() int {
	// Border(2) + Padding(2) + Title(1) + Blank(1) + Input(1) + Blank(1) +
	// "Found X matches"(2) + Blank(1) + Footer(1) + scroll indicators(4)
	available := a.height - 16
	n := available / 3
	if n < 1 {
		n = 1
	}
	return n
}

func (a AppView) renderMessageSearch(searchInput textinput.Model, results []messageMatch, selectedIdx, scrollIdx, width, height int) string {
	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("🔍 Search Conversation")

	var resultsView strings.Builder
	if len(results) == 0 {
		if searchInput.Value() == "" {
			resultsView.WriteString(DimStyle.Render("Type to search this conversation..."))
		} else {
			resultsView.WriteString(DimStyle.Render("No matches found"))
		}
	} else {
		endIdx := scrollIdx + a.visibleSearchResults()
		if endIdx > len(results) {
			endIdx = len(results)
		}

		resultsView.WriteString(fmt.Sprintf("Found %d matches:\n\n", len(results)))
		if scrollIdx > 0 {
			resultsView.WriteString(DimStyle.Render(fmt.Sprintf("↑ %d more above", scrollIdx)) + "\n\n")
		}

		for i := scrollIdx; i < endIdx; i++ {
			match := results[i]

			roleStyle, roleName := UserStyle, "You"
			if match.Role == appmodel.RoleAssistant {
				roleStyle, roleName = AssistantStyle, "Jarvis"
			}

			matchText := fmt.Sprintf("%s [%s]\n  %s",
				roleStyle.Render(roleName),
				match.Timestamp.Format("3:04 PM"),
				match.Preview,
			)

			if i == selectedIdx {
				matchText = SelectedStyle.Render("> ") + matchText
			} else {
				matchText = "  " + matchText
			}
			resultsView.WriteString(matchText + "\n\n")
		}

		if endIdx < len(results) {
			resultsView.WriteString(DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-endIdx)))
		}
	}

	footer := FormatFooter("Type", "to search", "↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		searchInput.View(),
		"",
		resultsView.String(),
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
