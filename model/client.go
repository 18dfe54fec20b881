package model

import (
	"context"

	"jarvis/transport"
)

// Backend is the part of the transport client the controller drives.
//
// It is declared here rather than in transport so tests can substitute
// transporttest.MockClient without the controller depending on *transport.Client.
type Backend interface {
	SendChat(ctx context.Context, text, sessionID string) (*transport.ChatReply, error)
	SendContact(ctx context.Context, form transport.ContactForm) error
}

// Prober asks the status monitor for an out-of-band probe. Trigger is the
// throttled user request; Refresh follows a failed or cancelled chat call.
type Prober interface {
	Trigger() bool
	Refresh()
}

// BackendFactory builds a Backend for the given settings. It is used to
// swap the client when the API URL or timeouts change at runtime.
type BackendFactory func(baseURL string, opts transport.Options) (Backend, error)
