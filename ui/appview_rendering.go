package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"jarvis/config"
	appmodel "jarvis/model"
)

const thinkingText = "Thinking..."

// Pre-compiled regex patterns
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// Code block lines from go-term-markdown start with this bar.
const codeBar = "┃"

func roleLabel(role string) string {
	if role == appmodel.RoleUser {
		return UserStyle.Render("You")
	}
	return AssistantStyle.Render("Jarvis")
}

// updateViewportContent redraws the conversation and records where each
// message starts so search can scroll to it.
func (a *AppView) updateViewportContent(gotoBottom bool) {
	var content strings.Builder
	lines := 0
	a.messageOffsets = a.messageOffsets[:0]

	for i, msg := range a.dataModel.Messages {
		a.messageOffsets = append(a.messageOffsets, lines)

		highlightPrefix := ""
		if i == a.highlightedMessageIdx && a.highlightFlashCount%2 == 1 {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}

		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))
		body := msg.Rendered
		if body == "" {
			body = msg.Content
		}

		var entry string
		if msg.Role == appmodel.RoleUser {
			entry = formatUserMessage(highlightPrefix, timestamp, roleLabel(msg.Role), body)
		} else {
			entry = fmt.Sprintf("%s%s %s\n%s\n\n", highlightPrefix, timestamp, roleLabel(msg.Role), body)
		}
		content.WriteString(entry)
		lines += strings.Count(entry, "\n")
	}

	if a.dataModel.IsLoading {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		content.WriteString(fmt.Sprintf("%s %s\n%s %s\n\n", timestamp, roleLabel(appmodel.RoleAssistant), a.loadingSpinner.View(), DimStyle.Render(thinkingText)))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + codeBar + reset

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s%s %s %s\n", highlightPrefix, bar, timestamp, role))
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")

	return result.String()
}

// renderMarkdownAsync renders one message off the Update goroutine.
func (a AppView) renderMarkdownAsync(messageIndex int, content string) tea.Cmd {
	width := a.width
	return func() tea.Msg {
		start := time.Now()

		// Links render as plain URLs so the terminal can make them clickable.
		source := mdLinkRegex.ReplaceAllString(content, "$2")

		ext := markdown.Extensions() &^ parser.Autolink
		p := parser.NewWithExtensions(ext)
		r := markdown.NewRenderer(width-4, 0)
		rendered := gomarkdown.Render(p.Parse([]byte(source)), r)

		processed := postProcessMarkdown(string(rendered), width)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] markdown for message %d rendered in %v (%d chars)", messageIndex, time.Since(start), len(content))
		}

		return appmodel.MarkdownRenderedMsg{
			MessageIndex: messageIndex,
			Source:       content,
			Rendered:     strings.TrimRight(processed, "\n"),
		}
	}
}

// renderAll schedules rendering for every message, e.g. after a resize.
func (a AppView) renderAll() tea.Cmd {
	if a.width <= 4 {
		return nil
	}
	var cmds []tea.Cmd
	for i, msg := range a.dataModel.Messages {
		cmds = append(cmds, a.renderMarkdownAsync(i, msg.Content))
	}
	return tea.Batch(cmds...)
}

// renderFrom schedules rendering for messages at index from onwards.
func (a AppView) renderFrom(from int) tea.Cmd {
	if a.width <= 4 {
		return nil
	}
	var cmds []tea.Cmd
	for i := from; i < len(a.dataModel.Messages); i++ {
		cmds = append(cmds, a.renderMarkdownAsync(i, a.dataModel.Messages[i].Content))
	}
	return tea.Batch(cmds...)
}

func (a *AppView) applyRendered(msg appmodel.MarkdownRenderedMsg) {
	if msg.MessageIndex < 0 || msg.MessageIndex >= len(a.dataModel.Messages) {
		return
	}
	target := &a.dataModel.Messages[msg.MessageIndex]
	if target.Content != msg.Source {
		return
	}
	target.Rendered = msg.Rendered
}

func postProcessMarkdown(rendered string, width int) string {
	// Inline code: blue background becomes red text
	rendered = inlineCodeRegex.ReplaceAllString(rendered, "\x1b[31m$1\x1b[0m")
	rendered = colorURLs(rendered)
	return frameCodeBlocks(rendered, width)
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	const (
		darkGray = "\x1b[90m"
		reset    = "\x1b[0m"
		rule     = "━"
	)

	lineLen := width - 4
	if lineLen < 10 {
		lineLen = 10
	}

	label := "[code]"
	leftLen := (lineLen - len(label)) / 2
	rightLen := lineLen - len(label) - leftLen
	top := darkGray + strings.Repeat(rule, leftLen) + reset + label + darkGray + strings.Repeat(rule, rightLen) + reset
	bottom := darkGray + strings.Repeat(rule, lineLen) + reset

	var result []string
	inCodeBlock := false

	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBar) {
			if !inCodeBlock {
				inCodeBlock = true
				result = append(result, "", top, "")
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			result = append(result, "", bottom, "")
			inCodeBlock = false
		}
		result = append(result, line)
	}
	if inCodeBlock {
		result = append(result, "", bottom, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	rest := line[idx+len(codeBar):]
	return strings.TrimPrefix(rest, " ")
}

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
