// Package transport talks to the Jarvis backend over HTTP and websockets.
// It keeps no state between calls beyond the configured base URL and timeouts.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"jarvis/config"
)

const maxResponseSize = 4 << 20

const (
	ContentTypeWebM = "audio/webm"
	ContentTypeMP4  = "audio/mp4"
)

type Options struct {
	ChatTimeout   time.Duration
	HealthTimeout time.Duration
	UploadTimeout time.Duration

	// HTTPClient defaults to a client without its own timeout; every call is
	// bounded by the per-operation timeouts above.
	HTTPClient *http.Client
}

// OptionsFromConfig maps resolved settings onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChatTimeout:   cfg.ChatTimeout,
		HealthTimeout: cfg.HealthTimeout,
		UploadTimeout: cfg.UploadTimeout,
	}
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	opts    Options
}

type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"sessionId"`
}

// TranscribeResult is either a finished transcript or a job to poll.
type TranscribeResult struct {
	Transcript string `json:"transcript"`
	ID         string `json:"id"`
	Status     string `json:"status"`
}

// Pending reports whether the backend accepted the audio as an asynchronous job.
func (r *TranscribeResult) Pending() bool {
	return r.ID != "" && r.Status != JobCompleted
}

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobError      = "error"
)

type TranscriptJob struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func NewClient(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		baseURL = config.DefaultAPIURL
	}

	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = 30 * time.Second
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 5 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 60 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: parsed,
		http:    httpClient,
		opts:    opts,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// SendChat posts one message. An empty sessionID is sent as null so the
// backend starts a new session.
func (c *Client) SendChat(ctx context.Context, text, sessionID string) (*ChatReply, error) {
	reqBody := chatRequest{Message: text}
	if sessionID != "" {
		reqBody.SessionID = &sessionID
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.ChatTimeout)
	defer cancel()

	body, status, err := c.do(ctx, callCtx, "chat", http.MethodPost, "/api/chat", "application/json", payload)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, serverError(status, body)
	}

	var reply ChatReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse chat reply: %w", err)
	}

	return &reply, nil
}

// HealthCheck returns nil when the backend answers /health with a 2xx.
func (c *Client) HealthCheck(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	body, status, err := c.do(ctx, callCtx, "health", http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return serverError(status, body)
	}
	return nil
}

// Transcribe uploads raw audio as audio/webm, retrying exactly once as
// audio/mp4 if the backend rejects the first content type.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*TranscribeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.UploadTimeout)
	defer cancel()

	body, status, err := c.do(ctx, callCtx, "transcribe", http.MethodPost, "/api/transcribe", ContentTypeWebM, audio)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Transport] upload as %s rejected (%d), retrying as %s", ContentTypeWebM, status, ContentTypeMP4)
		}
		body, status, err = c.do(ctx, callCtx, "transcribe", http.MethodPost, "/api/transcribe", ContentTypeMP4, audio)
		if err != nil {
			return nil, err
		}
		if !isSuccess(status) {
			return nil, &UploadError{Status: status, Body: strings.TrimSpace(string(body))}
		}
	}

	var result TranscribeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse transcription reply: %w", err)
	}
	return &result, nil
}

// TranscriptStatus fetches the state of an asynchronous transcription job.
func (c *Client) TranscriptStatus(ctx context.Context, id string) (*TranscriptJob, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	body, status, err := c.do(ctx, callCtx, "transcript status", http.MethodGet, "/api/transcribe/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, serverError(status, body)
	}

	var job TranscriptJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse transcript status: %w", err)
	}
	return &job, nil
}

// SendContact delivers the contact form through the backend.
func (c *Client) SendContact(ctx context.Context, form ContactForm) error {
	payload, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("failed to marshal contact form: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.ChatTimeout)
	defer cancel()

	body, status, err := c.do(ctx, callCtx, "contact", http.MethodPost, "/api/contact", "application/json", payload)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return serverError(status, body)
	}
	return nil
}

// do performs one request. parent is the caller's context and callCtx the
// same context bounded by the operation timeout; comparing the two tells a
// caller abort apart from a timeout.
func (c *Client) do(parent, callCtx context.Context, op, method, path, contentType string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classify(parent, callCtx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, classify(parent, callCtx, op, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Transport] %s %s -> %d in %v (request %s)", method, path, resp.StatusCode, time.Since(start), requestID)
	}

	return body, resp.StatusCode, nil
}

func classify(parent, callCtx context.Context, op string, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return ErrAborted
	case parent.Err() != nil, errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	default:
		return &NetworkError{Op: op, Err: err}
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func serverError(status int, body []byte) error {
	srvErr := &ServerError{Status: status}
	var fallback struct {
		Response string `json:"response"`
	}
	if json.Unmarshal(body, &fallback) == nil {
		srvErr.Message = strings.TrimSpace(fallback.Response)
	}
	return srvErr
}
