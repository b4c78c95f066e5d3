package realtime

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// msgConn replays canned inbound messages and records outbound ones.
type msgConn struct {
	mu     sync.Mutex
	in     [][]byte
	out    [][]byte
	closes int
}

func (c *msgConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.in) == 0 {
		return 0, nil, io.EOF
	}
	data := c.in[0]
	c.in = c.in[1:]
	return websocket.TextMessage, data, nil
}

func (c *msgConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, data)
	return nil
}

func (c *msgConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func TestStreamJoinsInboundMessages(t *testing.T) {
	conn := &msgConn{in: [][]byte{
		[]byte("MESSAGE\nsubscription:1\n\n{\"a\""),
		{},
		[]byte(":1}\x00\n"),
	}}
	s := newWSStream(conn)

	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := s.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
	}
	assert.Equal(t, "MESSAGE\nsubscription:1\n\n{\"a\":1}\x00\n", string(got))
}

func TestStreamReadsFramesAcrossMessages(t *testing.T) {
	conn := &msgConn{in: [][]byte{
		[]byte("MESSAGE\nsubscription:1\n\nhel"),
		[]byte("lo\x00\n"),
	}}
	r := frame.NewReader(newWSStream(conn))

	f, err := r.Read()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, frame.MESSAGE, f.Command)
	assert.Equal(t, "hello", string(f.Body))
}

func TestStreamWritesOneMessagePerFrame(t *testing.T) {
	conn := &msgConn{}
	s := newWSStream(conn)
	w := frame.NewWriter(s)

	send := frame.New(frame.SEND, "destination", "/app/walks/w1/location")
	send.Body = []byte(`{"type":"LOCATION_UPDATE"}`)
	require.NoError(t, w.Write(send))
	require.NoError(t, w.Write(nil))

	require.Len(t, conn.out, 2)
	assert.True(t, bytes.HasPrefix(conn.out[0], []byte("SEND\n")))
	assert.Contains(t, string(conn.out[0]), "\x00")
	assert.Equal(t, "\n", string(conn.out[1]))
}

func TestStreamCloseOnce(t *testing.T) {
	conn := &msgConn{}
	s := newWSStream(conn)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, conn.closes)
}
