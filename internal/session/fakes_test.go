package session

import (
	"context"
	"sync"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
)

// fakeTransport records outbound traffic and lets tests feed inbound
// events through a plain channel.
type fakeTransport struct {
	mu            sync.Mutex
	openErr       error
	opened        bool
	closedCount   int
	setup         entities.SessionSetup
	audioFrames   [][]byte
	toolBatches   [][]entities.ToolResponse
	textMessages  []string
	sendErr       error
	terminalErr   error
	events        chan repositories.ServerEvent
	openBlock     chan struct{}
	closeOnce     sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan repositories.ServerEvent, 64)}
}

func (f *fakeTransport) Open(ctx context.Context, setup entities.SessionSetup) error {
	f.mu.Lock()
	block := f.openBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	f.setup = setup
	return nil
}

func (f *fakeTransport) Events() <-chan repositories.ServerEvent { return f.events }

func (f *fakeTransport) SendRealtimeAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.audioFrames = append(f.audioFrames, append([]byte(nil), pcm...))
	return nil
}

func (f *fakeTransport) SendToolResponses(responses []entities.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	batch := append([]entities.ToolResponse(nil), responses...)
	f.toolBatches = append(f.toolBatches, batch)
	return nil
}

func (f *fakeTransport) SendClientText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.textMessages = append(f.textMessages, text)
	return nil
}

func (f *fakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminalErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closedCount++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

// failWith simulates connection loss: records the terminal error and
// closes the event stream.
func (f *fakeTransport) failWith(err error) {
	f.mu.Lock()
	f.terminalErr = err
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.events) })
}

func (f *fakeTransport) sentAudio() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.audioFrames...)
}

func (f *fakeTransport) sentBatches() [][]entities.ToolResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]entities.ToolResponse(nil), f.toolBatches...)
}

// fakeSource hands out frames pushed by the test.
type fakeSource struct {
	mu      sync.Mutex
	started bool
	stopped int
	frames  chan []int16
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []int16, 16)}
}

func (f *fakeSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeSource) ReadFrame(ctx context.Context) ([]int16, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-f.frames:
		return frame, nil
	}
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

// fakeSink records playback writes and flushes.
type fakeSink struct {
	mu      sync.Mutex
	writes  [][]byte
	flushes int
}

func (f *fakeSink) Write(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), pcm...))
	return nil
}

func (f *fakeSink) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSink) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// memTranscriptSink collects persisted transcript messages.
type memTranscriptSink struct {
	mu   sync.Mutex
	msgs []entities.TranscriptMessage
}

func (m *memTranscriptSink) SaveTranscript(ctx context.Context, msg entities.TranscriptMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memTranscriptSink) saved() []entities.TranscriptMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.TranscriptMessage(nil), m.msgs...)
}
