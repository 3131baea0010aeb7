package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"minesweeper/core"
	"minesweeper/realtime"
)

const writeWait = 5 * time.Second

// Handler returns an http.Handler that upgrades to WebSocket and streams
// accepted entries from the hub. An optional ?difficulty= query narrows the
// stream to one difficulty.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var boards []core.Difficulty
		if d := r.URL.Query().Get("difficulty"); d != "" {
			boards = append(boards, core.Difficulty(d))
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(256, boards...)
		defer hub.Unsubscribe(id)

		// reader: notice client close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				frame, err := realtime.EncodeEvent(ev)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, frame); err != nil {
					return
				}
			}
		}
	})
}
