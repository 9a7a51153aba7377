package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swdee/go-smilecam"
	"github.com/swdee/go-smilecam/ledger"
	"github.com/swdee/go-smilecam/pipeline"
)

type fakeGame struct {
	snap   *pipeline.Snapshot
	stats  pipeline.Stats
	resets atomic.Int32
}

func (g *fakeGame) Snapshot() *pipeline.Snapshot { return g.snap }
func (g *fakeGame) Stats() pipeline.Stats        { return g.stats }
func (g *fakeGame) Reset()                       { g.resets.Add(1) }

type fakeHistory struct {
	rewards   []ledger.Reward
	err       error
	lastLimit int
}

func (h *fakeHistory) RecentRewards(ctx context.Context, limit int) ([]ledger.Reward, error) {
	h.lastLimit = limit
	return h.rewards, h.err
}

func (h *fakeHistory) Leaderboard(ctx context.Context, limit int) ([]ledger.Standing, error) {
	h.lastLimit = limit
	return []ledger.Standing{{FaceID: "User1", Rewards: 2}}, h.err
}

func newTestServer(history History) (*Server, *Hub, *fakeGame) {

	hub := NewHub(zap.NewNop(), 16)

	game := &fakeGame{
		snap: &pipeline.Snapshot{
			Points:     map[string]int{"User2": 20, "User1": 30},
			Identities: 2,
		},
		stats: pipeline.Stats{Cycles: 42},
	}

	return NewServer("127.0.0.1:0", hub, game, history, zap.NewNop()), hub, game
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthAndPoints(t *testing.T) {

	s, _, _ := newTestServer(nil)

	rec := doRequest(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(s, http.MethodGet, "/api/points")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap pipeline.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, map[string]int{"User1": 30, "User2": 20}, snap.Points)
	assert.Equal(t, 2, snap.Identities)
}

func TestStats(t *testing.T) {

	s, _, _ := newTestServer(nil)

	rec := doRequest(s, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(42), resp.Pipeline.Cycles)
	assert.Equal(t, 0, resp.Hub.Subscribers)
}

func TestResetQueuesReset(t *testing.T) {

	s, _, game := newTestServer(nil)

	rec := doRequest(s, http.MethodPost, "/api/reset")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, int32(1), game.resets.Load())

	rec = doRequest(s, http.MethodGet, "/api/reset")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int32(1), game.resets.Load())
}

func TestRewardsWithoutLedger(t *testing.T) {

	s, _, _ := newTestServer(nil)

	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/api/rewards").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/api/leaderboard").Code)
}

func TestRewardsFromLedger(t *testing.T) {

	history := &fakeHistory{
		rewards: []ledger.Reward{{ID: 1, FaceID: "User1", Points: 100, Message: "User1 earned a reward!"}},
	}

	s, _, _ := newTestServer(history)

	rec := doRequest(s, http.MethodGet, "/api/rewards?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.lastLimit)

	var rewards []ledger.Reward
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rewards))
	require.Len(t, rewards, 1)
	assert.Equal(t, "User1", rewards[0].FaceID)

	rec = doRequest(s, http.MethodGet, "/api/leaderboard?limit=100000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxListLimit, history.lastLimit)

	assert.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/api/rewards?limit=-1").Code)

	history.err = errors.New("disk full")
	assert.Equal(t, http.StatusInternalServerError, doRequest(s, http.MethodGet, "/api/rewards").Code)
}

func TestWebSocketDeliversEnvelopes(t *testing.T) {

	s, hub, _ := newTestServer(nil)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// the current balances arrive first, in label order
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"points_update","data":{"face_id":"User1","points":30}}`, string(msg))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"points_update","data":{"face_id":"User2","points":20}}`, string(msg))

	hub.Publish(smilecam.NewRewardEvent("User1", 100, "User1 earned a reward!", time.Unix(0, 0)))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event":"reward","data":{"face_id":"User1","points":100,"message":"User1 earned a reward!"}}`,
		string(msg))
}

func TestMJPEGStream(t *testing.T) {

	s, hub, _ := newTestServer(nil)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	// game events are not part of the video stream
	hub.Publish(smilecam.NewPointsEvent("User1", 10, time.Unix(0, 0)))
	hub.Publish(smilecam.NewFrameEvent([]byte("jpegdata"), "anBlZ2RhdGE=", time.Unix(0, 0)))

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Length: 8\r\n", line)

	_, err = reader.ReadString('\n')
	require.NoError(t, err)

	body := make([]byte, 8)
	_, err = io.ReadFull(reader, body)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(body))
}

func TestServerSentEvents(t *testing.T) {

	s, hub, _ := newTestServer(nil)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	hub.Publish(smilecam.NewFrameEvent([]byte("jpegdata"), "anBlZ2RhdGE=", time.Unix(0, 0)))
	hub.Publish(smilecam.NewPointsEvent("User1", 0, time.Unix(0, 0)))

	reader := bufio.NewReader(resp.Body)

	var events, data []string

	for len(events) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)

		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event: ")))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
		}
	}

	// two snapshot balances then the live update, no frame
	assert.Equal(t, []string{"points_update", "points_update", "points_update"}, events)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))

	assert.JSONEq(t, `{"face_id":"User1","points":0}`, data[2])
}
