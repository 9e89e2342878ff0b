package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// WSHandler streams run events over a websocket: GET /v1/ws?runId={id}.
// Each event is one JSON frame {"type": ..., "data": {...}}. The same events
// are available as SSE under /v1/runs/{id}/events/stream; the websocket is
// for clients that want a bidirectional transport or can't hold SSE open.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	if runID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing runId", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if _, err := s.Store.GetRun(r.Context(), p.Tenant, runID); err != nil {
		writeError(w, err, r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)

	done := make(chan struct{})
	// Read loop exists only to notice the close frame and answer pings.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			// run terminal events end the stream
			if evt.Type == "run.completed" || evt.Type == "run.failed" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
