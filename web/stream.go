package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swdee/go-smilecam"
	"github.com/swdee/go-smilecam/pipeline"
)

// snapshotEvents converts a snapshot into one points_update per identity so
// a new observer starts with the current balances
func snapshotEvents(snap *pipeline.Snapshot) []smilecam.Event {

	if snap == nil {
		return nil
	}

	ids := make([]string, 0, len(snap.Points))

	for id := range snap.Points {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	events := make([]smilecam.Event, 0, len(ids))

	for _, id := range ids {
		events = append(events, smilecam.NewPointsEvent(id, snap.Points[id], snap.Updated))
	}

	return events
}

// handleWebSocket upgrades the connection and pushes every event to the
// observer as a JSON {"event": ..., "data": ...} envelope
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {

	conn, err := s.upgrader.Upgrade(w, r, nil)

	if err != nil {
		// the upgrader has already replied to the client
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	defer conn.Close()

	// subscribe before taking the snapshot so no update is missed between them
	sub := s.hub.Subscribe("ws")
	defer s.hub.Unsubscribe(sub)

	for _, ev := range snapshotEvents(s.game.Snapshot()) {
		if err := s.writeWS(conn, ev); err != nil {
			return
		}
	}

	// observers send nothing, reading is only to notice the close
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return

		case ev, ok := <-sub.Events():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(s.writeWait))
				return
			}

			if err := s.writeWS(conn, ev); err != nil {
				s.log.Debug("websocket write failed", zap.String("subscriber", sub.ID),
					zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, ev smilecam.Event) error {
	conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return conn.WriteJSON(ev)
}

// handleEvents streams game events as Server-Sent Events.  Frames are only
// included when the frames query parameter is true.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	types := []smilecam.EventType{
		smilecam.EventPointsUpdate,
		smilecam.EventReward,
		smilecam.EventReset,
	}

	if withFrames, _ := strconv.ParseBool(r.URL.Query().Get("frames")); withFrames {
		types = append(types, smilecam.EventFrame)
	}

	sub := s.hub.Subscribe("sse", types...)
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, ev := range snapshotEvents(s.game.Snapshot()) {
		sendSSEEvent(w, flusher, ev)
	}

	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			sendSSEEvent(w, flusher, ev)
		}
	}
}

// sendSSEEvent writes one event with its payload as the data line
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev smilecam.Event) {
	jsonData, _ := json.Marshal(ev.Payload())
	_, _ = io.WriteString(w, "event: "+string(ev.Type)+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// handleStream is the HTTP handler used to stream the annotated video
// frames to a browser as MJPEG
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := s.hub.Subscribe("mjpeg", smilecam.EventFrame)
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			if len(ev.JPEG) == 0 {
				continue
			}

			// write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n"))
			w.Write([]byte("Content-Length: " + strconv.Itoa(len(ev.JPEG)) + "\r\n\r\n"))

			if _, err := w.Write(ev.JPEG); err != nil {
				return
			}

			w.Write([]byte("\r\n"))
			flusher.Flush()
		}
	}
}
