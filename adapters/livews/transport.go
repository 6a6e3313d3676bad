// Package livews implements the agent transport over a JSON websocket.
package livews

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
)

const defaultConnectTimeout = 15 * time.Second

// Transport speaks the live voice protocol: one setup frame, then duplex
// JSON envelopes. Events are delivered in wire order; the consumer must
// keep draining Events until it closes.
type Transport struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger *zap.Logger

	conn   *websocket.Conn
	events chan repositories.ServerEvent
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// New builds an unopened transport. token may be empty for servers that
// do not authenticate.
func New(url, token string, logger *zap.Logger) *Transport {
	return &Transport{
		url:    url,
		token:  token,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

var _ repositories.AgentTransport = (*Transport)(nil)

// Open dials the server and sends the setup frame. The read loop starts
// only after setup is on the wire, so the server never sees audio before
// configuration.
func (t *Transport) Open(ctx context.Context, setup entities.SessionSetup) error {
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	headers := make(http.Header)
	if t.token != "" {
		headers.Set("Authorization", "Bearer "+t.token)
	}

	conn, resp, err := t.dialer.DialContext(dialCtx, t.url, headers)
	if err != nil {
		if resp != nil {
			return entities.NewTransportError("dial", t.url, resp.StatusCode, err)
		}
		return entities.NewTransportError("dial", t.url, 0, err)
	}

	if err := conn.WriteJSON(setupMessage{Setup: setup}); err != nil {
		_ = conn.Close()
		return entities.NewTransportError("setup", t.url, 0, err)
	}

	t.conn = conn
	t.events = make(chan repositories.ServerEvent, 256)
	t.done = make(chan struct{})
	go t.readLoop()

	t.logger.Info("Transport opened", zap.String("url", t.url))
	return nil
}

// Events yields server events in wire order. The channel closes when the
// connection dies; Err reports why.
func (t *Transport) Events() <-chan repositories.ServerEvent {
	return t.events
}

func (t *Transport) SendRealtimeAudio(pcm []byte) error {
	return t.sendJSON(clientMessage{
		RealtimeAudio: base64.StdEncoding.EncodeToString(pcm),
	})
}

func (t *Transport) SendToolResponses(responses []entities.ToolResponse) error {
	return t.sendJSON(clientMessage{
		ToolResponse: &toolResponse{Responses: responses},
	})
}

func (t *Transport) SendClientText(text string) error {
	return t.sendJSON(clientMessage{
		ClientText: &clientText{Text: text},
	})
}

func (t *Transport) sendJSON(v any) error {
	if t.closed.Load() {
		return entities.ErrTransportClosed
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

// Close shuts the connection down and waits for the read loop to drain.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		t.writeMu.Unlock()
		_ = t.conn.Close()
	})
	<-t.done
	return nil
}

// Err returns the terminal connection error, nil on a clean close. Valid
// only after Events has closed.
func (t *Transport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *Transport) setErr(err error) {
	if err == nil {
		return
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *Transport) readLoop() {
	defer close(t.done)
	defer close(t.events)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			t.setErr(err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.logger.Warn("Dropping malformed server frame", zap.Error(err))
			continue
		}

		for _, ev := range decodeServerMessage(msg, data, t.logger) {
			t.events <- ev
		}
	}
}

// decodeServerMessage maps one envelope to its events. A malformed audio
// payload drops only that frame; the connection survives.
func decodeServerMessage(msg serverMessage, raw []byte, logger *zap.Logger) []repositories.ServerEvent {
	var events []repositories.ServerEvent
	recognized := false

	if msg.AudioPart != "" {
		recognized = true
		pcm, err := base64.StdEncoding.DecodeString(msg.AudioPart)
		if err != nil {
			logger.Warn("Dropping undecodable audio part", zap.Error(err))
		} else {
			events = append(events, repositories.AudioPartEvent{PCM: pcm})
		}
	}
	if msg.Transcription != nil {
		events = append(events, repositories.TranscriptionEvent{
			Role: msg.Transcription.Role,
			Text: msg.Transcription.Text,
		})
	}
	if msg.ToolCall != nil {
		events = append(events, repositories.ToolCallEvent{Calls: msg.ToolCall.Calls})
	}
	if len(msg.Grounding) > 0 {
		events = append(events, repositories.GroundingEvent{Metadata: msg.Grounding})
	}
	if msg.Interrupted {
		events = append(events, repositories.InterruptedEvent{})
	}
	if msg.TurnComplete {
		events = append(events, repositories.TurnCompleteEvent{})
	}

	if len(events) == 0 && !recognized {
		events = append(events, repositories.UnknownEvent{
			Kind: "unrecognized",
			Raw:  append(json.RawMessage(nil), raw...),
		})
	}
	return events
}
