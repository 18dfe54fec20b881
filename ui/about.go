package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ASCIIArt = `     _                  _
    | | __ _ _ ____   _(_)___
 _  | |/ _' | '__\ \ / / / __|
| |_| | (_| | |   \ V /| \__ \
 \___/ \__,_|_|    \_/ |_|___/`

type aboutItem struct {
	name   string
	detail string
}

type aboutSection struct {
	title string
	items []aboutItem
}

var Features = []aboutSection{
	{"AI Models", []aboutItem{
		{"LangChain", "Advanced language model integration for natural conversations"},
		{"Gemini", "Google's AI model for enhanced capabilities"},
		{"SepAPI", "Specialized API for custom functionality"},
	}},
	{"Utility Tools", []aboutItem{
		{"Calculator", "Perform mathematical calculations"},
		{"DateTime", "Handle date and time operations"},
		{"Web Search", "Search the web for information"},
	}},
	{"Terminal Experience", []aboutItem{
		{"Voice Input", "Speak instead of typing; the transcript lands in the input box"},
		{"Live Status", "The banner tracks whether the server is reachable"},
		{"Keyboard Only", "Every action has a configurable key"},
	}},
}

var Constraints = []aboutSection{
	{"API", []aboutItem{
		{"Rate Limits", "Calls may be throttled under heavy usage"},
		{"Token Limits", "Responses may be truncated for very long inputs"},
		{"Timeout", "Requests give up after 30 seconds"},
	}},
	{"Performance", []aboutItem{
		{"Response Time", "Complex queries take longer to process"},
		{"Cold Starts", "A sleeping server can take a while to come online"},
	}},
	{"Security", []aboutItem{
		{"Data Privacy", "Do not share sensitive information"},
		{"Sessions", "Conversations live on the server, not on disk"},
	}},
}

func renderAboutSections(sb *strings.Builder, heading string, sections []aboutSection) {
	headingStyle := lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(warningColor)

	sb.WriteString(headingStyle.Render(heading))
	sb.WriteString("\n")
	for _, s := range sections {
		sb.WriteString(AssistantStyle.Bold(true).Render("## " + s.title))
		sb.WriteString("\n")
		for _, item := range s.items {
			sb.WriteString(fmt.Sprintf("• %s  %s\n", nameStyle.Render(fmt.Sprintf("%-14s", item.name)), DimStyle.Render(item.detail)))
		}
	}
}

func (a AppView) renderAboutModal(width, height int) string {
	var sb strings.Builder

	asciiStyle := lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)

	sb.WriteString(asciiStyle.Render(ASCIIArt))
	sb.WriteString("\n\n")

	renderAboutSections(&sb, "Features", Features)
	sb.WriteString("\n")
	renderAboutSections(&sb, "Constraints", Constraints)
	sb.WriteString("\n")

	labelStyle := lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)

	sb.WriteString(labelStyle.Render("Version: "))
	sb.WriteString(DimStyle.Render(a.dataModel.Version))
	sb.WriteString("\n")
	if a.dataModel.Config != nil {
		sb.WriteString(labelStyle.Render("Server:  "))
		sb.WriteString(DimStyle.Render(a.dataModel.Config.APIURL))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(DimStyle.Render(fmt.Sprintf("Press Esc or %s to close", a.formatKeyDisplay("about"))))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, boxStyle.Render(sb.String()))
}
