package amino

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageHandler consumes a normalized chat message. Handlers run
// sequentially on the socket's read goroutine.
type MessageHandler func(*ChatMessage)

// Socket owns a long-lived event-stream connection. The backend drops
// connections that look idle, so the socket reconnects on a fixed cadence in
// addition to reconnecting after unexpected closure. It is safe for
// concurrent use by multiple goroutines.
type Socket struct {
	deviceID string
	sid      string
	dialer   SocketDialer
	cfg      socketConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn SocketTransport
	gen  uint64 // connection generation; stale timers and loops no-op
	err  error
	done chan struct{}

	handlerMu sync.RWMutex
	onMessage []MessageHandler
	onCommand map[string][]MessageHandler
}

// ConnectSocket opens an event-stream session for the given identity using
// the default WebSocket dialer.
func ConnectSocket(ctx context.Context, deviceID, sid string, opts ...SocketOption) (*Socket, error) {
	return ConnectSocketWithDialer(ctx, deviceID, sid, DialSocket, opts...)
}

// ConnectSocketWithDialer opens a session with a custom dialer.
// This is useful for testing or custom transport implementations.
func ConnectSocketWithDialer(ctx context.Context, deviceID, sid string, dialer SocketDialer, opts ...SocketOption) (*Socket, error) {
	cfg := socketConfig{
		reconnectInterval: 120 * time.Second,
		reconnectDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Socket{
		deviceID:  deviceID,
		sid:       sid,
		dialer:    dialer,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		onCommand: make(map[string][]MessageHandler),
	}

	if err := s.connect(); err != nil {
		return nil, err
	}

	return s, nil
}

// OnMessage registers a handler for every chat message. Handlers fire in
// registration order, after any matching command handlers.
func (s *Socket) OnMessage(h MessageHandler) {
	s.handlerMu.Lock()
	s.onMessage = append(s.onMessage, h)
	s.handlerMu.Unlock()
}

// OnCommand registers a handler for messages whose content starts with the
// given keyword. Command handlers fire before generic message handlers.
func (s *Socket) OnCommand(keyword string, h MessageHandler) {
	s.handlerMu.Lock()
	s.onCommand[keyword] = append(s.onCommand[keyword], h)
	s.handlerMu.Unlock()
}

// Done is closed when the session ends, either by Close or by a terminal
// transport failure.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal failure, or nil after a clean Close.
// Only valid after Done is closed.
func (s *Socket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close shuts the session down. Pending reconnect timers become no-ops.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closedLocked() {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	conn := s.conn
	s.conn = nil
	close(s.done)
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Socket) closedLocked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// connect dials a fresh connection attempt and starts its read loop.
// A failed dial is terminal; closure of an established connection is not.
func (s *Socket) connect() error {
	s.mu.Lock()
	if s.closedLocked() {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	data := NewConnectData(s.deviceID, s.sid)

	conn, err := s.dialer(s.ctx, data)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.closedLocked() || gen != s.gen {
		s.mu.Unlock()
		conn.Close()
		return ErrSocketClosed
	}
	s.conn = conn
	s.mu.Unlock()

	if s.cfg.logger != nil {
		s.cfg.logger.Debug("socket open", slog.String("signbody", data.Body))
	}
	if s.cfg.onOpen != nil {
		s.cfg.onOpen()
	}

	// The backend drops idle-looking connections; preempt it on a fixed
	// cadence regardless of activity.
	time.AfterFunc(s.cfg.reconnectInterval, func() {
		s.reconnect(gen, "interval")
	})

	go s.readLoop(conn, gen)

	return nil
}

// reconnect tears the current connection down and dials again. It no-ops if
// the generation has moved on, so an interval timer cannot race a
// closure-triggered reconnect into a duplicate connection.
func (s *Socket) reconnect(gen uint64, reason string) {
	s.mu.Lock()
	if s.closedLocked() || gen != s.gen {
		s.mu.Unlock()
		return
	}
	// Claim the reconnect: any other timer still holding this generation
	// becomes a no-op instead of racing into a duplicate connection.
	s.gen++
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if s.cfg.logger != nil {
		s.cfg.logger.Debug("socket reconnecting", slog.String("reason", reason))
	}

	s.connect()
}

// readLoop receives frames until the connection goes away. Closure schedules
// a delayed reconnect; the delay avoids a tight loop against a transiently
// unavailable endpoint.
func (s *Socket) readLoop(conn SocketTransport, gen uint64) {
	for {
		data, err := conn.Receive(s.ctx)
		if err != nil {
			s.mu.Lock()
			stale := s.closedLocked() || gen != s.gen
			s.mu.Unlock()
			if stale {
				return
			}
			if s.cfg.logger != nil {
				s.cfg.logger.Debug("socket closed, reconnecting",
					slog.Duration("delay", s.cfg.reconnectDelay),
					slog.String("cause", err.Error()),
				)
			}
			time.AfterFunc(s.cfg.reconnectDelay, func() {
				s.reconnect(gen, "closed")
			})
			return
		}

		s.handleFrame(data)
	}
}

// fail records a terminal transport failure and ends the session. The host
// decides what to do next; the library never exits the process.
func (s *Socket) fail(err error) {
	s.mu.Lock()
	if s.closedLocked() {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.err = err
	conn := s.conn
	s.conn = nil
	close(s.done)
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		conn.Close()
	}

	if s.cfg.logger != nil {
		s.cfg.logger.Error("socket failed", slog.String("error", err.Error()))
	}
	if s.cfg.onError != nil {
		s.cfg.onError(err)
	}
}

// handleFrame parses and dispatches one inbound frame. Malformed frames are
// logged and skipped; a bad frame never tears the session down.
func (s *Socket) handleFrame(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		if s.cfg.logger != nil {
			s.cfg.logger.Warn("skipping malformed frame", slog.String("error", err.Error()))
		}
		return
	}

	if !frame.IsChatMessage() {
		return
	}

	msg := frame.Payload.ChatMessage
	if !handledMessageType(msg.Type) {
		return
	}

	msg.normalize(frame.Payload.NDCID)

	if s.cfg.logger != nil {
		s.cfg.logger.Debug("chat message",
			slog.Int64("ndc_id", msg.NDCID),
			slog.String("thread_id", msg.ThreadID),
			slog.String("message_id", msg.MessageID),
		)
	}

	s.dispatch(msg)
}

// dispatch delivers a message to its subscribers: matching command handlers
// first, then every generic message handler.
func (s *Socket) dispatch(msg *ChatMessage) {
	s.handlerMu.RLock()
	command := s.onCommand[msg.Command()]
	generic := s.onMessage
	s.handlerMu.RUnlock()

	for _, h := range command {
		h(msg)
	}
	for _, h := range generic {
		h(msg)
	}
}
