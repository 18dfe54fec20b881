package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
	appmodel "jarvis/model"
	"jarvis/transport"
)

const (
	contactSentTitle   = "Message Sent"
	contactSentMessage = "Thank you for your message! We'll get back to you soon."
	contactFailed      = "An error occurred while sending your message. Please try again."
)

const (
	contactName = iota
	contactEmail
	contactSubject
	contactMessage
	contactFieldCount
)

type contactState struct {
	inputs  [contactMessage]textinput.Model
	message textarea.Model
	focused int
	sending bool
	err     string
}

func newContactState() contactState {
	var c contactState
	prompts := [contactMessage]string{"Name:    ", "Email:   ", "Subject: "}
	for i := range c.inputs {
		ti := textinput.New()
		ti.Prompt = prompts[i]
		ti.CharLimit = 200
		c.inputs[i] = ti
	}

	c.message = textarea.New()
	c.message.Placeholder = "Your message..."
	c.message.ShowLineNumbers = false
	c.message.CharLimit = 0
	c.message.SetHeight(5)
	c.message.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	return c
}

func (c contactState) form() transport.ContactForm {
	return transport.ContactForm{
		Name:    strings.TrimSpace(c.inputs[contactName].Value()),
		Email:   strings.TrimSpace(c.inputs[contactEmail].Value()),
		Subject: strings.TrimSpace(c.inputs[contactSubject].Value()),
		Message: strings.TrimSpace(c.message.Value()),
	}
}

func (c *contactState) blur() {
	for i := range c.inputs {
		c.inputs[i].Blur()
	}
	c.message.Blur()
}

func (c *contactState) focus(idx int) tea.Cmd {
	c.focused = (idx + contactFieldCount) % contactFieldCount
	c.blur()
	if c.focused == contactMessage {
		return c.message.Focus()
	}
	return c.inputs[c.focused].Focus()
}

func (c *contactState) reset() {
	for i := range c.inputs {
		c.inputs[i].Reset()
	}
	c.message.Reset()
	c.err = ""
	c.sending = false
}

// contactErrorText maps a send failure to the line shown under the form.
func contactErrorText(err error) string {
	switch {
	case errors.Is(err, appmodel.ErrContactIncomplete), errors.Is(err, appmodel.ErrContactEmail):
		msg := err.Error()
		return strings.ToUpper(msg[:1]) + msg[1:] + "."
	default:
		return contactFailed
	}
}

func (a AppView) openContact() (AppView, tea.Cmd) {
	a.showContact = true
	a.contact.err = ""
	a.textarea.Blur()
	return a, a.contact.focus(contactName)
}

func (a AppView) closeContact() AppView {
	a.showContact = false
	a.contact.blur()
	a.textarea.Focus()
	return a
}

func (a AppView) handleContactUpdate(msg tea.KeyMsg) (AppView, tea.Cmd) {
	if a.contact.sending {
		return a, nil
	}

	switch msg.String() {
	case "esc":
		return a.closeContact(), nil
	case "tab":
		return a, a.contact.focus(a.contact.focused + 1)
	case "shift+tab":
		return a, a.contact.focus(a.contact.focused - 1)
	case "enter":
		if a.contact.focused != contactMessage {
			return a, a.contact.focus(a.contact.focused + 1)
		}
		a.contact.sending = true
		a.contact.err = ""
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] sending contact form")
		}
		return a, a.dataModel.SendContact(a.contact.form())
	}

	var cmd tea.Cmd
	if a.contact.focused == contactMessage {
		a.contact.message, cmd = a.contact.message.Update(msg)
	} else {
		a.contact.inputs[a.contact.focused], cmd = a.contact.inputs[a.contact.focused].Update(msg)
	}
	return a, cmd
}

func (a AppView) handleContactSent(msg appmodel.ContactSentMsg) AppView {
	a.contact.sending = false
	if msg.Err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] contact form failed: %v", msg.Err)
		}
		a.contact.err = contactErrorText(msg.Err)
		return a
	}

	a.contact.reset()
	a = a.closeContact()
	a.showInfoModal = true
	a.infoModalTitle = contactSentTitle
	a.infoModalMsg = contactSentMessage
	return a
}

func (a AppView) renderContactModal(width, height int) string {
	modalWidth := modalWidthFor(70, width)
	a.contact.message.SetWidth(modalWidth - 2)
	for i := range a.contact.inputs {
		a.contact.inputs[i].Width = modalWidth - 12
	}

	lines := []string{
		DimStyle.Render("Have questions or feedback? Send a message to the Jarvis team."),
		"",
	}
	for _, in := range a.contact.inputs {
		lines = append(lines, in.View(), "")
	}
	lines = append(lines, "Message:", a.contact.message.View())

	switch {
	case a.contact.sending:
		lines = append(lines, "", DimStyle.Render("Sending..."))
	case a.contact.err != "":
		lines = append(lines, "", ErrorStyle.Render(wordWrap(a.contact.err, modalWidth)))
	}

	footer := FormatFooter("Tab", "Next field", "Enter", "Next / Send", "Alt+Enter", "New line", "Esc", "Cancel")
	return RenderThreeSectionModal("✉ Contact Us", lines, footer, ModalTypeInfo, 70, width, height)
}

func (a AppView) renderInfoModal(width, height int) string {
	return RenderAcknowledgeModal(a.infoModalTitle, a.infoModalMsg, ModalTypeInfo, width, height)
}
