package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a task change notification pushed by the server.
type Event struct {
	Type    string `json:"type"`
	TaskID  string `json:"taskId"`
	Version int    `json:"version"`
}

// Listener consumes task events over a websocket and hands them to a
// callback, letting the client refresh cached tasks instead of reloading
// everything.
type Listener struct {
	url     string
	token   string
	onEvent func(Event)
}

// NewListener prepares a listener against the API root (the http(s) base
// URL; the ws scheme is derived from it). onEvent runs on the read loop
// goroutine and should hand off work quickly.
func NewListener(apiBaseURL, token string, onEvent func(Event)) *Listener {
	wsURL := strings.Replace(apiBaseURL, "http", "ws", 1)
	return &Listener{
		url:     strings.TrimRight(wsURL, "/") + "/ws?token=" + token,
		token:   token,
		onEvent: onEvent,
	}
}

// Run connects and reads events until the context is canceled. Dropped
// connections are redialed with a short backoff.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.runOnce(ctx); err != nil {
			log.Println("websocket listener:", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (l *Listener) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			// ignore frames that are not task events (e.g. pings)
			continue
		}
		if evt.Type == "" {
			continue
		}
		l.onEvent(evt)
	}
}
