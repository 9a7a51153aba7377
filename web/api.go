package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/swdee/go-smilecam/pipeline"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePoints returns the balances of all identities
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.game.Snapshot())
}

// StatsResponse is the body of GET /api/stats
type StatsResponse struct {
	Pipeline pipeline.Stats `json:"pipeline"`
	Hub      HubStats       `json:"hub"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatsResponse{
		Pipeline: s.game.Stats(),
		Hub:      s.hub.Stats(),
	})
}

// handleReset queues a reset of all game state, it is applied by the
// pipeline on its next cycle
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {

	s.game.Reset()

	s.log.Info("reset requested", zap.String("remote", r.RemoteAddr))

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "reset requested"})
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {

	if s.history == nil {
		respondError(w, http.StatusNotFound, "reward ledger is not enabled")
		return
	}

	limit, ok := queryLimit(r, defaultListLimit, maxListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	rewards, err := s.history.RecentRewards(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to read rewards", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read rewards")
		return
	}

	respondJSON(w, http.StatusOK, rewards)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {

	if s.history == nil {
		respondError(w, http.StatusNotFound, "reward ledger is not enabled")
		return
	}

	limit, ok := queryLimit(r, defaultListLimit, maxListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	board, err := s.history.Leaderboard(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to read leaderboard", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, board)
}
