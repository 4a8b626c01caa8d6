package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard may be served from a different origin during development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// httpWebSocket streams classification states to the dashboard.
// Slow clients have their states dropped by the monitor's watcher channel;
// we never stall the capture or classify threads for a socket.
func (s *Server) httpWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	watcher := s.monitor.AddWatcher()
	defer s.monitor.RemoveWatcher(watcher)
	defer conn.Close()

	closed := make(chan bool)
	go func() {
		// We never expect meaningful messages from the client; this read loop
		// exists to notice the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case state := <-watcher:
			if !state.Classified && !state.Done {
				// Per-frame render states are for in-process consumers; the
				// dashboard only wants the classification stream.
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(state); err != nil {
				s.Log.Infof("WebSocket client gone: %v", err)
				return
			}
		case <-closed:
			return
		case <-s.shutdownStarted:
			return
		}
	}
}
