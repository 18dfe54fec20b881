package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"jarvis/config"
)

// Source is a microphone. Start begins writing encoded audio to w; Stop ends
// capture, releases the device and returns only after the last byte has been
// written. Done closes when capture ends for any reason.
type Source interface {
	Start(ctx context.Context, w io.Writer) error
	Stop() error
	Done() <-chan struct{}
}

const stopGrace = 3 * time.Second

// CommandSource captures audio by running an external command (ffmpeg by
// default) that writes the encoded stream to stdout.
type CommandSource struct {
	Command []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  *limitedBuffer
	done    chan struct{}
	waitErr error
}

func NewCommandSource(command []string) *CommandSource {
	return &CommandSource{Command: command}
}

func (s *CommandSource) Start(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrAlreadyRecording
	}
	if len(s.Command) == 0 {
		return fmt.Errorf("%w: no capture command configured", ErrMicrophone)
	}

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Stdout = w
	stderr := &limitedBuffer{max: 4096}
	cmd.Stderr = stderr
	// Interrupt first so the encoder can finish the container cleanly.
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = stopGrace

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrMicrophone, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Speech] capture started: %s (pid %d)", strings.Join(s.Command, " "), cmd.Process.Pid)
	}

	s.cmd = cmd
	s.stderr = stderr
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		err := cmd.Wait()
		s.mu.Lock()
		s.waitErr = err
		s.mu.Unlock()
		close(done)
	}(s.done)

	return nil
}

func (s *CommandSource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Stop interrupts the capture command, kills it if it does not exit within
// the grace period, and waits for its output to drain.
func (s *CommandSource) Stop() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	if cmd == nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	signalled := false
	select {
	case <-done:
	default:
		signalled = true
		_ = interrupt(cmd.Process)
		select {
		case <-done:
		case <-time.After(stopGrace):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.waitErr
	stderr := s.stderr.String()
	s.cmd = nil

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Speech] capture stopped (wait: %v)", err)
	}

	// An exit caused by our own signal is the normal way to stop.
	var exitErr *exec.ExitError
	if err != nil && errors.As(err, &exitErr) && signalled {
		return nil
	}
	if err != nil {
		if stderr != "" {
			return fmt.Errorf("%w: %v: %s", ErrMicrophone, err, strings.TrimSpace(stderr))
		}
		return fmt.Errorf("%w: %v", ErrMicrophone, err)
	}
	return nil
}

func interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
