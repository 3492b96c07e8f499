package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client pumps one subscription onto one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	sub  *Subscription
	log  logrus.FieldLogger
}

func NewClient(hub *Hub, conn *websocket.Conn, log logrus.FieldLogger, topics ...string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		sub:  hub.Subscribe(topics...),
		log:  log,
	}
}

// Run blocks until the peer goes away or the hub closes.
func (c *Client) Run() {
	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()
	c.writePump(done)

	c.hub.Unsubscribe(c.sub)
	c.conn.Close()
}

// readPump only services control frames. Clients never send commands.
func (c *Client) readPump() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("Websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *Client) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.WithError(err).Debug("Websocket write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
