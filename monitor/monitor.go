// Package monitor classifies the backend as checking, online or offline.
//
// A probe first calls the health endpoint. If that succeeds it makes up to
// MaxChatRetries synthetic chat calls, RetryDelay apart. A healthy process
// whose chats all fail is reported offline as "partially online".
// Probes run once on Start and then every Interval until Stop.
package monitor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jarvis/config"
	"jarvis/transport"
)

type State int

const (
	Checking State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "checking"
	}
}

const (
	MsgChecking        = "Checking server status..."
	MsgOnline          = "Server is online"
	MsgOffline         = "Server is offline. Please try again later."
	MsgPartiallyOnline = "Server is partially online: health check passed but chat is not responding."
	MsgForcedOnline    = "Server marked online manually (not verified)"

	// ProbeMessage is the synthetic chat text sent during a probe.
	ProbeMessage = "ping"
)

type Status struct {
	State     State
	Message   string
	CheckedAt time.Time
	Forced    bool
}

// Backend is the slice of the transport client a probe needs.
type Backend interface {
	HealthCheck(ctx context.Context) error
	SendChat(ctx context.Context, text, sessionID string) (*transport.ChatReply, error)
}

type Options struct {
	Interval       time.Duration
	RetryDelay     time.Duration
	MaxChatRetries int

	// TriggerEvery bounds how often Trigger may start a probe.
	TriggerEvery time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:       cfg.ProbeInterval,
		RetryDelay:     cfg.ProbeRetryDelay,
		MaxChatRetries: cfg.MaxChatProbeRetries,
	}
}

type Monitor struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter

	mu     sync.Mutex
	status Status
	// probeCancel cancels the in-flight probe; probeSeq identifies it so an
	// older probe finishing late cannot overwrite a newer result.
	probeCancel context.CancelFunc
	probeSeq    uint64

	updates chan Status
	trigger chan struct{}

	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func New(backend Backend, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.MaxChatRetries <= 0 {
		opts.MaxChatRetries = 3
	}
	if opts.TriggerEvery <= 0 {
		opts.TriggerEvery = 2 * time.Second
	}

	return &Monitor{
		backend: backend,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.TriggerEvery), 1),
		status:  Status{State: Checking, Message: MsgChecking},
		updates: make(chan Status, 1),
		trigger: make(chan struct{}, 1),
	}
}

// Status returns the latest known status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Updates publishes every status transition. Only the latest unread value is
// kept, so a slow reader sees the current state rather than a backlog.
func (m *Monitor) Updates() <-chan Status {
	return m.updates
}

func (m *Monitor) publish(s Status) {
	select {
	case <-m.updates:
	default:
	}
	select {
	case m.updates <- s:
	default:
	}
}

// setIfCurrent stores s only if seq is still the newest probe.
func (m *Monitor) setIfCurrent(seq uint64, s Status) bool {
	m.mu.Lock()
	if seq != m.probeSeq {
		m.mu.Unlock()
		return false
	}
	m.status = s
	m.mu.Unlock()

	m.publish(s)
	return true
}

// Probe runs one classification and returns its result. Starting a probe
// cancels any probe still in flight.
func (m *Monitor) Probe(ctx context.Context) Status {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.probeCancel != nil {
		m.probeCancel()
	}
	m.probeSeq++
	seq := m.probeSeq
	m.probeCancel = cancel
	m.mu.Unlock()

	m.setIfCurrent(seq, Status{State: Checking, Message: MsgChecking})

	result := m.classify(ctx)
	if ctx.Err() != nil {
		// Superseded or stopped: leave the state to whoever cancelled us.
		return m.Status()
	}

	m.setIfCurrent(seq, result)
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Monitor] probe %d: %s (%s)", seq, result.State, result.Message)
	}
	return result
}

func (m *Monitor) classify(ctx context.Context) Status {
	if err := m.backend.HealthCheck(ctx); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Monitor] health check failed: %v", err)
		}
		return Status{State: Offline, Message: MsgOffline, CheckedAt: time.Now()}
	}

	for attempt := 1; attempt <= m.opts.MaxChatRetries; attempt++ {
		_, err := m.backend.SendChat(ctx, ProbeMessage, "")
		if err == nil {
			return Status{State: Online, Message: MsgOnline, CheckedAt: time.Now()}
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Monitor] chat probe %d/%d failed: %v", attempt, m.opts.MaxChatRetries, err)
		}
		if attempt == m.opts.MaxChatRetries {
			break
		}

		timer := time.NewTimer(m.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Status{State: Checking, Message: MsgChecking}
		case <-timer.C:
		}
	}

	return Status{State: Offline, Message: MsgPartiallyOnline, CheckedAt: time.Now()}
}

// ForceOnline marks the backend online without probing. The next probe
// replaces it.
func (m *Monitor) ForceOnline() {
	m.mu.Lock()
	if m.probeCancel != nil {
		m.probeCancel()
		m.probeCancel = nil
	}
	m.probeSeq++
	s := Status{State: Online, Message: MsgForcedOnline, CheckedAt: time.Now(), Forced: true}
	m.status = s
	m.mu.Unlock()

	m.publish(s)
}

// Trigger requests an immediate probe from the running loop on behalf of the
// user. It returns false when the request was throttled.
func (m *Monitor) Trigger() bool {
	if !m.limiter.Allow() {
		return false
	}
	m.Refresh()
	return true
}

// Refresh requests an immediate probe without throttling. It is used when a
// chat request failed or was cancelled. A request made while another is still
// queued is merged into it.
func (m *Monitor) Refresh() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Start probes once, then every Interval, until ctx ends or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.runCancel != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.runCancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	probeDone := make(chan struct{})
	inflight := 0
	startProbe := func() {
		inflight++
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.Probe(ctx)
			select {
			case probeDone <- struct{}{}:
			case <-ctx.Done():
			}
		}()
	}

	startProbe()
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-probeDone:
			inflight--
		case <-ticker.C:
			if inflight == 0 {
				startProbe()
			}
		case <-m.trigger:
			// A manual probe supersedes whatever is in flight.
			startProbe()
		}
	}
}

// Stop cancels the interval and any in-flight probe and waits for both.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.runCancel
	m.runCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
