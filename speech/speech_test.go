package speech

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/transport"
	"jarvis/transport/transporttest"
)

type fakeSource struct {
	mu       sync.Mutex
	w        io.Writer
	startErr error
	tail     []byte
	starts   int
	stops    int
	started  chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{started: make(chan struct{}), done: make(chan struct{})}
}

func (s *fakeSource) Start(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.w = w
	s.starts++
	close(s.started)
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	w, tail := s.w, s.tail
	s.stops++
	s.mu.Unlock()

	if w != nil && tail != nil {
		_, _ = w.Write(tail)
	}
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSource) Done() <-chan struct{} {
	return s.done
}

func (s *fakeSource) emit(p []byte) {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	_, _ = w.Write(p)
}

func (s *fakeSource) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func TestRecorder_StartStop(t *testing.T) {
	src := newFakeSource()
	src.tail = []byte("!")
	rec := NewRecorder(src)

	var chunks [][]byte
	rec.OnChunk(func(c []byte) { chunks = append(chunks, c) })

	assert.Equal(t, Idle, rec.State())
	require.NoError(t, rec.Start(context.Background()))
	assert.Equal(t, Recording, rec.State())
	assert.ErrorIs(t, rec.Start(context.Background()), ErrAlreadyRecording)

	src.emit([]byte("hello "))
	src.emit([]byte("world"))

	audio, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "hello world!", string(audio), "audio drained during Stop is kept")
	assert.Equal(t, Stopped, rec.State())
	assert.Equal(t, 1, src.stopCount())
	assert.Len(t, chunks, 3)

	_, err = rec.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorder_StartFailureReleasesSource(t *testing.T) {
	src := newFakeSource()
	src.startErr = ErrMicrophone
	rec := NewRecorder(src)

	err := rec.Start(context.Background())
	assert.ErrorIs(t, err, ErrMicrophone)
	assert.Equal(t, Idle, rec.State())
	assert.Equal(t, 1, src.stopCount())
}

func TestRecorder_CloseReleasesSource(t *testing.T) {
	src := newFakeSource()
	rec := NewRecorder(src)

	require.NoError(t, rec.Start(context.Background()))
	src.emit([]byte("discard me"))

	require.NoError(t, rec.Close())
	assert.Equal(t, 1, src.stopCount())
	assert.Equal(t, Idle, rec.State())

	require.NoError(t, rec.Close(), "closing an idle recorder is a no-op")
	assert.Equal(t, 1, src.stopCount())
}

func TestCommandSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	src := NewCommandSource([]string{"sh", "-c", "printf abc; exec sleep 10"})
	rec := NewRecorder(src)
	require.NoError(t, rec.Start(context.Background()))

	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	audio, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(audio))
	assert.Less(t, time.Since(start), stopGrace, "interrupt should stop the command without the kill fallback")

	select {
	case <-src.Done():
	default:
		t.Fatal("source not released")
	}
}

func TestCommandSource_MissingBinary(t *testing.T) {
	src := NewCommandSource([]string{"/nonexistent/jarvis-capture"})
	err := src.Start(context.Background(), io.Discard)
	assert.ErrorIs(t, err, ErrMicrophone)
}

func TestCommandSource_EmptyCommand(t *testing.T) {
	err := NewCommandSource(nil).Start(context.Background(), io.Discard)
	assert.ErrorIs(t, err, ErrMicrophone)
}

func TestTranscriber_RejectsShortAudioWithoutNetwork(t *testing.T) {
	tests := []struct {
		name string
		size int
		want error
	}{
		{"empty", 0, ErrNoAudio},
		{"tiny", 10, ErrTooShort},
		{"just under minimum", 1023, ErrTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := transporttest.NewMockClient()
			tr := NewTranscriber(mock, TranscriberOptions{})

			_, err := tr.Transcribe(context.Background(), make([]byte, tt.size))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, mock.TotalCalls())
		})
	}
}

func TestTranscriber_Synchronous(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{Transcript: " test "}, nil
	}

	var phases []Phase
	tr := NewTranscriber(mock, TranscriberOptions{OnPhase: func(p Phase) { phases = append(phases, p) }})

	text, err := tr.Transcribe(context.Background(), make([]byte, 2000))
	require.NoError(t, err)
	assert.Equal(t, "test", text)
	assert.Equal(t, []Phase{Uploading, Completed}, phases)
	assert.Equal(t, 0, mock.Calls("TranscriptStatus"))
}

func TestTranscriber_PollsUntilCompleted(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{ID: "job-1", Status: transport.JobQueued}, nil
	}
	statuses := []string{transport.JobQueued, transport.JobProcessing, transport.JobCompleted}
	var polls int
	mock.TranscriptStatusFunc = func(ctx context.Context, id string) (*transport.TranscriptJob, error) {
		assert.Equal(t, "job-1", id)
		status := statuses[polls]
		polls++
		job := &transport.TranscriptJob{ID: id, Status: status}
		if status == transport.JobCompleted {
			job.Transcript = "what's the weather"
		}
		return job, nil
	}

	var phases []Phase
	tr := NewTranscriber(mock, TranscriberOptions{
		PollInterval: 5 * time.Millisecond,
		OnPhase:      func(p Phase) { phases = append(phases, p) },
	})

	text, err := tr.Transcribe(context.Background(), make([]byte, 2000))
	require.NoError(t, err)
	assert.Equal(t, "what's the weather", text)
	assert.Equal(t, 3, mock.Calls("TranscriptStatus"))
	assert.Equal(t, []Phase{Uploading, Polling, Completed}, phases)
}

func TestTranscriber_JobError(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{ID: "job-2", Status: transport.JobProcessing}, nil
	}
	mock.TranscriptStatusFunc = func(ctx context.Context, id string) (*transport.TranscriptJob, error) {
		return &transport.TranscriptJob{ID: id, Status: transport.JobError, Error: "audio unreadable"}, nil
	}

	tr := NewTranscriber(mock, TranscriberOptions{PollInterval: 5 * time.Millisecond})
	_, err := tr.Transcribe(context.Background(), make([]byte, 2000))

	var trErr *TranscriptionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "audio unreadable", trErr.Reason)
	assert.Equal(t, "Transcription failed: audio unreadable", UserMessage(err))
}

func TestTranscriber_PollTimeout(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{ID: "job-3", Status: transport.JobQueued}, nil
	}
	mock.TranscriptStatusFunc = func(ctx context.Context, id string) (*transport.TranscriptJob, error) {
		return &transport.TranscriptJob{ID: id, Status: transport.JobProcessing}, nil
	}

	tr := NewTranscriber(mock, TranscriberOptions{
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	})
	_, err := tr.Transcribe(context.Background(), make([]byte, 2000))
	assert.ErrorIs(t, err, ErrTranscriptionTimeout)
}

func TestTranscriber_CancelledWhilePolling(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return &transport.TranscribeResult{ID: "job-4", Status: transport.JobQueued}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTranscriber(mock, TranscriberOptions{PollInterval: time.Hour})
	_, err := tr.Transcribe(ctx, make([]byte, 2000))
	assert.ErrorIs(t, err, transport.ErrAborted)
}

func TestTranscriber_UploadFailure(t *testing.T) {
	mock := transporttest.NewMockClient()
	mock.TranscribeFunc = func(ctx context.Context, audio []byte) (*transport.TranscribeResult, error) {
		return nil, &transport.UploadError{Status: 415}
	}

	var phases []Phase
	tr := NewTranscriber(mock, TranscriberOptions{OnPhase: func(p Phase) { phases = append(phases, p) }})
	_, err := tr.Transcribe(context.Background(), make([]byte, 2000))

	assert.Error(t, err)
	assert.Equal(t, "Failed to upload audio. Please try again.", UserMessage(err))
	assert.Equal(t, []Phase{Uploading, Failed}, phases)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoAudio, "No audio was recorded. Please try again."},
		{ErrTooShort, "Audio recording is too short. Please speak for at least a few seconds."},
		{ErrMicrophone, "Could not access microphone. Please check permissions."},
		{ErrTranscriptionTimeout, "Transcription timed out. Please try again."},
		{&TranscriptionError{}, "Transcription failed: Unknown error"},
		{errors.New("boom"), "Failed to process audio. Please try again."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err))
	}
}

func TestSilenceDetector(t *testing.T) {
	now := time.Unix(0, 0)
	d := NewSilenceDetector(500*time.Millisecond, 100*time.Millisecond)
	d.now = func() time.Time { return now }
	d.Reset()

	assert.False(t, d.Silent())

	now = now.Add(500 * time.Millisecond)
	assert.False(t, d.Silent(), "exactly the threshold is not yet silence")

	now = now.Add(time.Millisecond)
	assert.True(t, d.Silent())

	d.Speech()
	assert.False(t, d.Silent())
}

func TestSilenceDetector_WaitHonoursContext(t *testing.T) {
	d := NewSilenceDetector(time.Hour, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, d.Wait(ctx))

	d = NewSilenceDetector(10*time.Millisecond, time.Millisecond)
	assert.True(t, d.Wait(context.Background()))
}

type fakeStream struct {
	mu       sync.Mutex
	sent     [][]byte
	events   chan transport.TranscriptEvent
	final    string
	finished bool
	closed   bool
	err      error
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan transport.TranscriptEvent, 8)}
}

func (s *fakeStream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, chunk)
	return nil
}

func (s *fakeStream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	if s.final != "" {
		s.events <- transport.TranscriptEvent{Transcript: s.final, Final: true}
	}
	return nil
}

func (s *fakeStream) Events() <-chan transport.TranscriptEvent { return s.events }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func dialTo(s *fakeStream) DialFunc {
	return func(ctx context.Context) (TranscriptStream, error) { return s, nil }
}

func collectInterim(l *LiveSession) <-chan []string {
	out := make(chan []string, 1)
	go func() {
		var got []string
		for text := range l.Interim() {
			got = append(got, text)
		}
		out <- got
	}()
	return out
}

func TestLiveSession_StopsOnSilence(t *testing.T) {
	src := newFakeSource()
	stream := newFakeStream()
	stream.final = "hello world"

	live := NewLiveSession(src, dialTo(stream), LiveOptions{
		SilenceThreshold: 100 * time.Millisecond,
		SilenceTick:      5 * time.Millisecond,
	})
	interim := collectInterim(live)

	go func() {
		<-src.started
		src.emit([]byte{0x1a, 0x45})
		stream.events <- transport.TranscriptEvent{Transcript: "hello"}
	}()

	text, err := live.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	got := <-interim
	require.NotEmpty(t, got)
	assert.Equal(t, "hello world", got[len(got)-1])

	stream.mu.Lock()
	defer stream.mu.Unlock()
	assert.True(t, stream.finished)
	assert.True(t, stream.closed)
	assert.Equal(t, [][]byte{{0x1a, 0x45}}, stream.sent)
	assert.Equal(t, 1, src.stopCount())
}

func TestLiveSession_ManualStop(t *testing.T) {
	src := newFakeSource()
	stream := newFakeStream()

	live := NewLiveSession(src, dialTo(stream), LiveOptions{
		SilenceThreshold: time.Hour,
		FinalWait:        10 * time.Millisecond,
	})
	_ = collectInterim(live)

	go func() {
		<-src.started
		stream.events <- transport.TranscriptEvent{Transcript: "turn it up"}
		time.Sleep(20 * time.Millisecond)
		live.Stop()
	}()

	text, err := live.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "turn it up", text)
	assert.Equal(t, 1, src.stopCount())
}

func TestLiveSession_StreamError(t *testing.T) {
	src := newFakeSource()
	stream := newFakeStream()
	stream.err = errors.New("connection reset")

	live := NewLiveSession(src, dialTo(stream), LiveOptions{SilenceThreshold: time.Hour})
	_ = collectInterim(live)

	go func() {
		<-src.started
		close(stream.events)
	}()

	_, err := live.Run(context.Background())
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, 1, src.stopCount(), "microphone released on error")
}

func TestLiveSession_DialFailure(t *testing.T) {
	src := newFakeSource()
	live := NewLiveSession(src, func(ctx context.Context) (TranscriptStream, error) {
		return nil, &transport.NetworkError{Op: "transcript stream", Err: errors.New("refused")}
	}, LiveOptions{})

	_, err := live.Run(context.Background())
	var netErr *transport.NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.Equal(t, 0, src.stopCount(), "microphone never opened")

	_, open := <-live.Interim()
	assert.False(t, open)
}
