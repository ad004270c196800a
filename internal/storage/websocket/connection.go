package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/omni3d/studio/pkg/streaming"
)

const (
	outboxSize   = 4096
	ackBuffer    = 16
	maxRedials   = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	firstBackoff = time.Second
)

// stream is the publish link to a viewer server. One supervisor goroutine
// owns the socket for writing and redials it when it drops; a reader
// goroutine per socket forwards acks.
type stream struct {
	url    string
	apiKey string
	logger *slog.Logger

	outbox chan []byte
	acks   chan string
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu       sync.Mutex
	snapshot []byte
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		logger: logger,
		outbox: make(chan []byte, outboxSize),
		acks:   make(chan string, ackBuffer),
		done:   make(chan struct{}),
	}
}

// open dials once and hands the socket to the supervisor. A failed first
// dial is reported, later drops are redialed in the background.
func (s *stream) open(rawURL, apiKey string) error {
	s.url, s.apiKey = rawURL, apiKey
	conn, err := s.dial()
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go s.supervise(conn)
	return nil
}

func (s *stream) dial() (*ws.Conn, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}
	conn, _, err := ws.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u.Host, err)
	}
	return conn, nil
}

func (s *stream) supervise(conn *ws.Conn) {
	defer s.wg.Done()
	for conn != nil {
		if !s.pump(conn) {
			return
		}
		conn = s.redial()
	}
}

// pump writes queued messages to conn until the socket fails (true) or the
// stream is closed (false).
func (s *stream) pump(conn *ws.Conn) bool {
	readDone := make(chan error, 1)
	go func() { readDone <- s.readAcks(conn) }()

	for {
		select {
		case <-s.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			_ = conn.Close()
			return false
		case err := <-readDone:
			s.logger.Warn("publish stream read failed", "error", err)
			_ = conn.Close()
			return true
		case data := <-s.outbox:
			if err := write(conn, data); err != nil {
				s.logger.Warn("publish stream write failed", "error", err)
				_ = conn.Close()
				return true
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (s *stream) readAcks(conn *ws.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != "ack" {
			s.logger.Debug("ignoring server message", "raw", string(raw))
			continue
		}
		select {
		case s.acks <- ack.For:
		default:
			s.logger.Debug("ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial backs off exponentially and replays the latest snapshot on the
// new socket so viewers resync. It returns nil when it gives up or the
// stream is closed.
func (s *stream) redial() *ws.Conn {
	backoff := firstBackoff
	for attempt := 1; attempt <= maxRedials; attempt++ {
		s.logger.Info("reconnecting publish stream", "attempt", attempt, "backoff", backoff)
		select {
		case <-s.done:
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		if snap := s.lastSnapshot(); snap != nil {
			if err := write(conn, snap); err != nil {
				s.logger.Warn("snapshot replay failed", "error", err)
				_ = conn.Close()
				continue
			}
		}
		s.logger.Info("publish stream reconnected", "attempt", attempt)
		return conn
	}
	s.logger.Error("publish stream reconnect gave up", "attempts", maxRedials)
	return nil
}

// remember keeps data for replay after a reconnect. nil forgets it.
func (s *stream) remember(data []byte) {
	s.mu.Lock()
	s.snapshot = data
	s.mu.Unlock()
}

func (s *stream) lastSnapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// send queues data without blocking. It drops the message when the
// outbox is full.
func (s *stream) send(data []byte) {
	select {
	case s.outbox <- data:
	default:
		s.logger.Warn("publish queue full, dropping message")
	}
}

// sendAndWait queues data and waits for the server to ack msgType.
func (s *stream) sendAndWait(data []byte, msgType string, timeout time.Duration) error {
	// acks of replayed snapshots are nobody's
	for len(s.acks) > 0 {
		<-s.acks
	}
	s.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case got := <-s.acks:
			if got == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-s.done:
			return fmt.Errorf("stream closed while waiting for ack of %q", msgType)
		}
	}
}

// close sends a close frame and waits for the supervisor to exit. Safe to
// call more than once.
func (s *stream) close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}
