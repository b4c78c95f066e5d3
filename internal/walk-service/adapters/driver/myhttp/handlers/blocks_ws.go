package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	websocketdto "pawwalk/internal/walk-service/core/domain/websocket_dto"
	"pawwalk/internal/walk-service/core/ports/driver"

	"github.com/gorilla/websocket"
)

const (
	MessageTypeBlocksSnapshot = "BLOCKS_SNAPSHOT"

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	egressSize = 8
)

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientList is the set of connected overlay feeds.
type ClientList map[*Client]bool

// Client is one overlay subscriber. Only the newest unsent snapshot matters,
// so a slow client skips intermediate ones.
type Client struct {
	conn   *websocket.Conn
	egress chan []byte
}

// Dispatcher fans block snapshots out to every connected overlay.
type Dispatcher struct {
	clients ClientList
	sync.RWMutex
	log mylogger.Logger
	svc driver.IWalkService
}

func NewDispatcher(svc driver.IWalkService, log mylogger.Logger) *Dispatcher {
	return &Dispatcher{
		clients: make(ClientList),
		log:     log,
		svc:     svc,
	}
}

// Start subscribes to the block store and returns the unsubscribe func.
func (d *Dispatcher) Start() func() {
	return d.svc.SubscribeBlocks(d.Broadcast)
}

func (d *Dispatcher) Broadcast(snap model.BlockSnapshot) {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		d.log.Action("blocks_broadcast").Error("cannot encode snapshot", err)
		return
	}

	d.RLock()
	defer d.RUnlock()
	for c := range d.clients {
		c.offer(payload)
	}
}

func (d *Dispatcher) ClientCount() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.clients)
}

func (d *Dispatcher) WsHandler(w http.ResponseWriter, r *http.Request) {
	log := d.log.Action("blocks_ws")

	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("cannot upgrade", err)
		return
	}

	client := &Client{conn: conn, egress: make(chan []byte, egressSize)}
	if payload, err := encodeSnapshot(d.svc.Blocks()); err == nil {
		client.offer(payload)
	}
	d.addClient(client)

	go d.writePump(client)
	go d.readPump(client)
}

func (d *Dispatcher) addClient(c *Client) {
	d.Lock()
	defer d.Unlock()
	d.clients[c] = true
}

func (d *Dispatcher) removeClient(c *Client) {
	d.Lock()
	defer d.Unlock()
	if _, ok := d.clients[c]; ok {
		c.conn.Close()
		delete(d.clients, c)
		close(c.egress)
	}
}

// readPump only watches for the peer going away.
func (d *Dispatcher) readPump(c *Client) {
	defer d.removeClient(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.log.Action("blocks_ws").Debug("overlay feed closed", "error", err.Error())
			}
			return
		}
	}
}

func (d *Dispatcher) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// offer queues payload, dropping the oldest queued snapshot when full.
// Callers hold the dispatcher lock, so egress is never closed underneath.
func (c *Client) offer(payload []byte) {
	for {
		select {
		case c.egress <- payload:
			return
		default:
		}
		select {
		case <-c.egress:
		default:
		}
	}
}

func encodeSnapshot(snap model.BlockSnapshot) ([]byte, error) {
	if snap.Mine == nil {
		snap.Mine = []model.Cell{}
	}
	if snap.Others == nil {
		snap.Others = []model.Cell{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(websocketdto.Event{Type: MessageTypeBlocksSnapshot, Data: data})
}
