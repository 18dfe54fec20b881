package model

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"jarvis/transport"
)

var (
	ErrContactIncomplete = errors.New("please fill in every field")
	ErrContactEmail      = errors.New("please enter a valid email address")
)

// ValidateContact checks the form before it is sent.
func ValidateContact(form transport.ContactForm) error {
	if strings.TrimSpace(form.Name) == "" || strings.TrimSpace(form.Email) == "" ||
		strings.TrimSpace(form.Subject) == "" || strings.TrimSpace(form.Message) == "" {
		return ErrContactIncomplete
	}
	if _, err := mail.ParseAddress(form.Email); err != nil {
		return ErrContactEmail
	}
	return nil
}

// SendContact validates and delivers the contact form in the background.
func (m *Model) SendContact(form transport.ContactForm) tea.Cmd {
	if err := ValidateContact(form); err != nil {
		return func() tea.Msg { return ContactSentMsg{Err: err} }
	}

	client := m.Client
	return func() tea.Msg {
		return ContactSentMsg{Err: client.SendContact(context.Background(), form)}
	}
}
