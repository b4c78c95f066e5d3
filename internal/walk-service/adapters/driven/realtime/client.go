package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	websocketdto "pawwalk/internal/walk-service/core/domain/websocket_dto"
	"pawwalk/internal/walk-service/core/myerrors"
	"pawwalk/internal/walk-service/core/ports/driven"

	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
)

const (
	handshakeTimeout  = 10 * time.Second
	disconnectTimeout = 2 * time.Second
)

type Options struct {
	URL            string
	ReconnectDelay time.Duration
	Heartbeat      time.Duration
}

// session is one live STOMP connection. It is replaced on every reconnect.
type session struct {
	stream  *wsStream
	conn    *stomp.Conn
	gen     uint64
	walkSub *stomp.Subscription
	areaSub *stomp.Subscription

	teardownOnce sync.Once
}

// abort drops the transport without any goodbye frames.
func (s *session) abort() {
	_ = s.stream.Close()
}

// teardown unsubscribes, sends DISCONNECT and closes the transport in the
// background. Every receipt wait is bounded by disconnectTimeout.
func (s *session) teardown(subs ...*stomp.Subscription) {
	s.teardownOnce.Do(func() {
		go func() {
			defer s.abort()
			deadline := time.After(disconnectTimeout)
			for _, sub := range subs {
				if sub == nil {
					continue
				}
				if !within(deadline, func() { _ = sub.Unsubscribe() }) {
					return
				}
			}
			within(deadline, func() { _ = s.conn.Disconnect() })
		}()
	})
}

// within runs fn and reports whether it returned before deadline fired.
func within(deadline <-chan time.Time, fn func()) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-deadline:
		return false
	}
}

// Client keeps one walk's realtime channel open, applies block events to the
// store and reconnects after transport loss.
type Client struct {
	dialer Dialer
	store  driven.IBlockStore
	me     model.DogID
	opts   Options
	log    mylogger.Logger
	now    func() time.Time

	// OnEvent receives every decoded server message after it was applied to
	// the store. OnError receives malformed messages and terminal failures.
	// Both must be set before Connect.
	OnEvent func(websocketdto.Inbound)
	OnError func(error)

	mu      sync.Mutex
	state   model.ConnState
	gen     uint64
	stop    chan struct{}
	sess    *session
	walkID  string
	token   string
	areaKey string
}

var _ driven.IRealtimeClient = (*Client)(nil)

func NewClient(dialer Dialer, store driven.IBlockStore, me model.DogID, opts Options, log mylogger.Logger) *Client {
	return &Client{
		dialer: dialer,
		store:  store,
		me:     me,
		opts:   opts,
		log:    log,
		now:    time.Now,
		state:  model.ConnDisconnected,
	}
}

func (c *Client) State() model.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) AreaKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.areaKey
}

// Connect opens the channel for walkID and subscribes to its topic. A client
// that is already connected is disconnected first.
func (c *Client) Connect(ctx context.Context, walkID, token string) error {
	l := c.log.Action("realtime_connect").With("walk_id", walkID)

	c.mu.Lock()
	if c.state != model.ConnDisconnected {
		c.mu.Unlock()
		c.Disconnect()
		c.mu.Lock()
	}
	c.state, _ = nextState(c.state, evDial)
	c.gen++
	gen := c.gen
	c.stop = make(chan struct{})
	c.walkID, c.token = walkID, token
	c.mu.Unlock()

	sess, err := c.handshake(ctx, walkID, token)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if sess != nil {
			sess.abort()
		}
		return fmt.Errorf("%w: disconnected while connecting", myerrors.ErrConnectionFailed)
	}
	if err != nil {
		c.state, _ = nextState(c.state, evAuthFailed)
		c.walkID, c.token = "", ""
		close(c.stop)
		c.stop = nil
		c.mu.Unlock()
		l.Error("realtime connect failed", err)
		return fmt.Errorf("%w: %w", myerrors.ErrConnectionFailed, err)
	}
	c.install(sess, gen)
	c.mu.Unlock()

	c.subscribeAll(sess, walkID)
	l.Info("realtime connected")
	return nil
}

// Disconnect is safe in every state and may be called repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == model.ConnDisconnected && c.sess == nil {
		c.mu.Unlock()
		return
	}
	c.state, _ = nextState(c.state, evClose)
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	sess := c.sess
	var areaSub, walkSub *stomp.Subscription
	if sess != nil {
		areaSub, walkSub = sess.areaSub, sess.walkSub
		sess.areaSub, sess.walkSub = nil, nil
	}
	c.sess = nil
	walkID := c.walkID
	c.walkID, c.token, c.areaKey = "", "", ""
	c.mu.Unlock()

	if sess != nil {
		sess.teardown(areaSub, walkSub)
	}
	c.log.Action("realtime_disconnect").Info("realtime disconnected", "walk_id", walkID)
}

// SendLocation publishes a location update. It never fails: while the channel
// is down the update is dropped with a warning.
func (c *Client) SendLocation(lat, lng float64) {
	c.mu.Lock()
	sess, walkID, state := c.sess, c.walkID, c.state
	c.mu.Unlock()

	l := c.log.Action("send_location")
	if state != model.ConnConnected || sess == nil {
		l.Warn(myerrors.ErrPublishDropped.Error(), "state", state.String())
		return
	}

	body, err := json.Marshal(websocketdto.NewLocationUpdate(lat, lng, c.now()))
	if err != nil {
		l.Error("failed to marshal location", err)
		return
	}
	if err := sess.conn.Send(locationDestination(walkID), "application/json", body); err != nil {
		l.Warn("location not sent", "error", err.Error())
	}
}

// SubscribeToArea adds the /topic/blocks/{areaKey} subscription. Only one
// area can be active; switching areas needs UnsubscribeFromArea first.
func (c *Client) SubscribeToArea(areaKey string) {
	l := c.log.Action("subscribe_area")
	if areaKey == "" {
		l.Warn("empty area key ignored")
		return
	}

	c.mu.Lock()
	if c.areaKey != "" {
		active := c.areaKey
		c.mu.Unlock()
		l.Warn("area subscription already active", "active", active, "requested", areaKey)
		return
	}
	c.areaKey = areaKey
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		c.subscribeArea(sess, areaKey)
	}
}

func (c *Client) UnsubscribeFromArea() {
	c.mu.Lock()
	c.areaKey = ""
	var sub *stomp.Subscription
	if c.sess != nil {
		sub = c.sess.areaSub
		c.sess.areaSub = nil
	}
	c.mu.Unlock()

	if sub != nil {
		go within(time.After(disconnectTimeout), func() { _ = sub.Unsubscribe() })
	}
}

func walkTopic(walkID string) string           { return "/topic/walks/" + walkID }
func areaTopic(areaKey string) string          { return "/topic/blocks/" + areaKey }
func locationDestination(walkID string) string { return "/app/walks/" + walkID + "/location" }

func (c *Client) handshake(ctx context.Context, walkID, token string) (*session, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	fc, err := c.dialer.Dial(ctx, c.opts.URL, header)
	if err != nil {
		return nil, err
	}
	stream := newWSStream(fc)

	// stomp.Connect has no deadline of its own; closing the stream unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	conn, err := stomp.Connect(stream, c.connectOptions(walkID, token)...)
	if !stop() {
		return nil, fmt.Errorf("waiting for CONNECTED: %w", ctx.Err())
	}
	if err != nil {
		_ = stream.Close()
		var serr stomp.Error
		if errors.As(err, &serr) && serr.Frame != nil && serr.Frame.Command == frame.ERROR {
			return nil, fmt.Errorf("%w: %s", errAuthRejected, serr.Message)
		}
		return nil, fmt.Errorf("stomp connect: %w", err)
	}
	return &session{stream: stream, conn: conn}, nil
}

func (c *Client) connectOptions(walkID, token string) []func(*stomp.Conn) error {
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.AcceptVersion(stomp.V12),
		stomp.ConnOpt.HeartBeat(c.opts.Heartbeat, c.opts.Heartbeat),
		stomp.ConnOpt.Header("Authorization", "Bearer "+token),
		stomp.ConnOpt.Header("walkId", walkID),
	}
	if u, err := url.Parse(c.opts.URL); err == nil && u.Hostname() != "" {
		opts = append(opts, stomp.ConnOpt.Host(u.Hostname()))
	}
	return opts
}

// install makes sess current. Caller holds c.mu.
func (c *Client) install(sess *session, gen uint64) {
	sess.gen = gen
	c.sess = sess
	c.state, _ = nextState(c.state, evEstablished)
}

// subscribeAll subscribes a fresh session to the walk topic and, when one is
// set, the area topic. Losing the walk subscription means losing the session.
func (c *Client) subscribeAll(sess *session, walkID string) {
	sub, err := sess.conn.Subscribe(walkTopic(walkID), stomp.AckAuto)
	if err != nil {
		c.transportLost(sess, err)
		return
	}

	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	sess.walkSub = sub
	areaKey := c.areaKey
	c.mu.Unlock()

	go c.consume(sess, sub, true)
	if areaKey != "" {
		c.subscribeArea(sess, areaKey)
	}
}

func (c *Client) subscribeArea(sess *session, areaKey string) {
	l := c.log.Action("subscribe_area")
	sub, err := sess.conn.Subscribe(areaTopic(areaKey), stomp.AckAuto)
	if err != nil {
		l.Warn("area subscription not sent", "area", areaKey, "error", err.Error())
		return
	}

	c.mu.Lock()
	if c.sess != sess || c.areaKey != areaKey || sess.areaSub != nil {
		c.mu.Unlock()
		go within(time.After(disconnectTimeout), func() { _ = sub.Unsubscribe() })
		return
	}
	sess.areaSub = sub
	c.mu.Unlock()

	go c.consume(sess, sub, false)
}

// consume applies one subscription's messages in receipt order. The walk
// subscription ends with an error when the connection drops; the area one is
// left to follow it.
func (c *Client) consume(sess *session, sub *stomp.Subscription, walk bool) {
	for msg := range sub.C {
		if msg.Err != nil {
			if walk {
				c.transportLost(sess, msg.Err)
			}
			return
		}
		c.handleMessage(msg.Body)
	}
}

func (c *Client) handleMessage(body []byte) {
	ev, err := websocketdto.Decode(body)
	if err != nil {
		c.reportError(err)
		return
	}
	c.apply(ev)
	if c.OnEvent != nil {
		c.OnEvent(ev)
	}
}

// apply folds a server event into the block store.
func (c *Client) apply(ev websocketdto.Inbound) {
	switch e := ev.(type) {
	case websocketdto.BlockOccupied:
		cell := model.Cell{ID: e.BlockID, OwnerID: model.DogID(e.DogID), OccupiedAt: c.orNow(e.OccupiedAt)}
		if cell.OwnerID == c.me {
			c.store.AddMine(cell)
		} else {
			c.store.UpsertOthers(cell)
		}
	case websocketdto.BlockTaken:
		matched := c.store.ApplyTakeover(
			e.BlockID,
			model.DogID(e.PreviousDogID),
			model.DogID(e.NewDogID),
			model.DogID(e.NewDogID) == c.me,
			c.orNow(e.TakenAt),
		)
		if !matched {
			c.log.Action("block_taken").Debug("takeover of a block with a different local owner",
				"block_id", e.BlockID, "previous_dog_id", e.PreviousDogID)
		}
	case websocketdto.BlocksSync:
		var mine, others []model.Cell
		for _, b := range e.Blocks {
			cell := model.Cell{ID: b.BlockID, OwnerID: model.DogID(b.DogID), OccupiedAt: c.orNow(b.OccupiedAt)}
			if cell.OwnerID == c.me {
				mine = append(mine, cell)
			} else {
				others = append(others, cell)
			}
		}
		c.store.Replace(mine, others)
	case websocketdto.BlockOccupyFailed:
		c.log.Action("block_occupy").Debug("block not occupied", "block_id", e.BlockID, "reason", e.Reason)
	case websocketdto.ServerError:
		c.log.Action("realtime_read").Warn("server reported error", "code", e.Code, "message", e.Message)
	}
}

func (c *Client) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return c.now()
	}
	return t
}

func (c *Client) transportLost(sess *session, cause error) {
	c.mu.Lock()
	if sess.gen != c.gen || c.sess != sess {
		// already torn down or replaced
		c.mu.Unlock()
		return
	}
	c.state, _ = nextState(c.state, evTransportLost)
	c.sess = nil
	stop := c.stop
	walkID, token := c.walkID, c.token
	c.mu.Unlock()

	sess.abort()
	c.log.Action("realtime_read").Warn("realtime transport lost", "walk_id", walkID, "error", cause.Error())
	go c.reconnect(sess.gen, stop, walkID, token)
}

// reconnect redials at a fixed delay until it succeeds, the client is
// disconnected or the server rejects the credentials.
func (c *Client) reconnect(gen uint64, stop <-chan struct{}, walkID, token string) {
	l := c.log.Action("realtime_reconnecting").With("walk_id", walkID)
	t := time.NewTicker(c.opts.ReconnectDelay)
	defer t.Stop()

	for {
		select {
		case <-t.C:
		case <-stop:
			return
		}

		sess, err := c.handshake(context.Background(), walkID, token)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			if sess != nil {
				sess.abort()
			}
			return
		}
		if err != nil {
			if errors.Is(err, errAuthRejected) {
				c.state, _ = nextState(c.state, evAuthFailed)
				c.mu.Unlock()
				l.Error("realtime reconnect rejected", err)
				c.reportError(fmt.Errorf("%w: %w", myerrors.ErrConnectionFailed, err))
				return
			}
			c.mu.Unlock()
			l.Info("realtime failed to reconnect", "error", err.Error())
			continue
		}
		c.install(sess, gen)
		c.mu.Unlock()

		c.subscribeAll(sess, walkID)
		l.Action("realtime_reconnection_completed").Info("Successfully reconnected!")
		return
	}
}

func (c *Client) reportError(err error) {
	c.log.Action("realtime_read").Warn("realtime error", "error", err.Error())
	if c.OnError != nil {
		c.OnError(err)
	}
}
