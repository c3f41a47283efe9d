package handlers

import (
	"log"
	"net/http"
	"time"

	"task-tracking-client/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsConn adapts a gorilla websocket connection to realtime.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (c *wsConn) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origin policy is handled by the CORS middleware
		return true
	},
}

// WebSocketHandler handles GET /api/ws
// Upgrades the connection and registers it with the hub so the user receives
// task change events for as long as the socket stays open. Requires the JWT
// middleware to have run.
func WebSocketHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("websocket upgrade error:", err)
		return
	}

	session := &wsConn{conn: conn}
	hub := realtime.GetHub()
	hub.Register(userID, session)

	done := make(chan struct{})
	go pingLoop(conn, done)
	defer func() {
		close(done)
		hub.Unregister(userID, session)
		session.Close()
	}()

	// The client never sends application frames; reads exist to surface
	// closes and to refresh the deadline on pongs.
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				// the read loop exits on the next error
				return
			}
		}
	}
}
