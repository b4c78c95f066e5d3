package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errAuthRejected = errors.New("authentication rejected")

// FrameConn is the part of *websocket.Conn the client uses.
type FrameConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (FrameConn, error)
}

type wsDialer struct {
	dialer *websocket.Dialer
}

func NewWSDialer(handshakeTimeout time.Duration) Dialer {
	return &wsDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Subprotocols:     []string{"v12.stomp", "v11.stomp"},
		},
	}
}

func (d *wsDialer) Dial(ctx context.Context, url string, header http.Header) (FrameConn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake status %d", errAuthRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("connecting to websocket: %w", err)
	}
	return conn, nil
}

// wsStream turns a message-oriented websocket into the byte stream the STOMP
// library reads and writes. Inbound messages are concatenated; every Write is
// sent as one text message. The library flushes once per frame, so a frame
// smaller than its write buffer travels in a single message.
type wsStream struct {
	conn FrameConn

	readMu  sync.Mutex
	pending []byte

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func newWSStream(conn FrameConn) *wsStream {
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for len(s.pending) == 0 {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.pending = data
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// the caller may reuse p once Write returns
	msg := make([]byte, len(p))
	copy(msg, p)
	if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
