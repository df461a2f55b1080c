package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) StorageUsageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Store.Usage())
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.Store.GetCurrentMatch()
		if m == nil {
			writeError(w, http.StatusNotFound, "no match in progress")
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in match.NewMatchInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		m, err := s.Store.CreateMatch(in)
		if err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error("Failed to create match", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create match")
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) ClearMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Store.ClearCurrentMatch()
		if r.URL.Query().Get("events") == "true" {
			s.Store.ClearCurrentMatchEvents()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) UpdateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u match.Update
		if err := decodeJSON(r, &u); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := u.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondMatch(w, s.Store.UpdateMatch(r.PathValue("id"), u))
	}
}

func (s *Server) UpdateBallsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var balls []match.Ball
		if err := decodeJSON(r, &balls); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := match.ValidateRack(balls); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondMatch(w, s.Store.UpdateBallStates(r.PathValue("id"), balls))
	}
}

// TapBallHandler cycles one ball on behalf of a player, adjusts the score
// and records the matching event.
func (s *Server) TapBallHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		number, err := strconv.Atoi(r.PathValue("number"))
		if err != nil || number < 1 || number > match.GameBall {
			writeError(w, http.StatusBadRequest, "ball number must be between 1 and 9")
			return
		}
		var req tapRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		m := s.Store.GetCurrentMatch()
		if m == nil || m.ID != id {
			writeError(w, http.StatusConflict, "match is not the current match")
			return
		}
		actor := req.Player
		if !actor.Valid() {
			actor = m.CurrentPlayer
		}

		before, found := findBall(m.Balls, number)
		if !found {
			writeError(w, http.StatusNotFound, "ball not on the table")
			return
		}
		balls, ok := match.TapBall(m.Balls, number, actor, req.Inning)
		if !ok {
			log.Info("Ball is locked for this player", "ball", number, "player", actor)
			writeError(w, http.StatusConflict, "ball is locked")
			return
		}
		after, _ := findBall(balls, number)

		u := match.Update{Balls: balls}
		var event *match.Event
		switch {
		case after.State == match.BallScored:
			score := m.Score(actor) + match.BallPoints(number)
			setScore(&u, actor, score)
			event = &match.Event{Type: match.EventBallScored, Player: actor, Points: match.BallPoints(number), NewScore: score}
		case before.State == match.BallScored:
			scorer := before.ScoredBy
			score := max(m.Score(scorer)-match.BallPoints(number), 0)
			setScore(&u, scorer, score)
			// A 9-ball tapped back to active is logged as a kill so replay
			// takes the points back too.
			event = &match.Event{Type: match.EventBallDead, Player: scorer, NewScore: score}
			if after.State == match.BallActive {
				event.Details = "undo"
			}
		}

		updated := s.Store.UpdateMatch(id, u)
		if updated == nil {
			writeError(w, http.StatusConflict, "match is not the current match")
			return
		}
		if event != nil {
			event.PlayerName = updated.Name(event.Player)
			event.GameNumber = updated.CurrentGame
			event.BallNumber = number
			s.Store.AddMatchEvent(*event)
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// EndTurnHandler locks the current player's balls and passes the table.
func (s *Server) EndTurnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		m := s.Store.GetCurrentMatch()
		if m == nil || m.ID != id {
			writeError(w, http.StatusConflict, "match is not the current match")
			return
		}
		player := m.CurrentPlayer
		next := player.Other()
		updated := s.Store.UpdateMatch(id, match.Update{
			Balls:         match.CompleteTurn(m.Balls, player),
			CurrentPlayer: &next,
		})
		if updated == nil {
			writeError(w, http.StatusConflict, "match is not the current match")
			return
		}
		s.Store.AddMatchEvent(match.Event{
			Type:       match.EventTurnEnded,
			Player:     player,
			PlayerName: m.Name(player),
			GameNumber: m.CurrentGame,
			NewScore:   m.Score(player),
		})
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) ListEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Store.GetCurrentMatchEvents())
	}
}

func (s *Server) AddEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e match.Event
		if err := decodeJSON(r, &e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if e.Type == "" {
			writeError(w, http.StatusBadRequest, "event type is required")
			return
		}
		s.Store.AddMatchEvent(e)
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) ClearEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Store.ClearCurrentMatchEvents()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Store.GetMatchHistory())
	}
}

// ArchiveMatchHandler moves the completed current match into history.
func (s *Server) ArchiveMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.Store.GetCurrentMatch()
		if m == nil {
			writeError(w, http.StatusNotFound, "no match in progress")
			return
		}
		if !m.IsComplete {
			writeError(w, http.StatusConflict, "match is not complete")
			return
		}
		if !s.Store.AddToHistory(m) {
			writeError(w, http.StatusInsufficientStorage, "match could not be archived")
			return
		}
		if r.URL.Query().Get("keep") != "true" {
			s.Store.ClearCurrentMatch()
			s.Store.ClearCurrentMatchEvents()
		}
		writeJSON(w, http.StatusCreated, s.Store.GetMatchHistory())
	}
}

func (s *Server) ClearHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Store.ClearAllMatchHistory()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DeleteHistoryEntryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Store.SupportsHistoryDeletion() {
			writeError(w, http.StatusNotImplemented, "history entries cannot be deleted individually on "+s.Store.BackendName()+" storage")
			return
		}
		if !s.Store.DeleteMatchFromHistory(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "history entry not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HistoryStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Store.GetMatchHistoryStats())
	}
}

func (s *Server) PlayerStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Store.GetPlayerStats(r.PathValue("name")))
	}
}

func (s *Server) respondMatch(w http.ResponseWriter, m *match.Match) {
	if m == nil {
		writeError(w, http.StatusConflict, "match is not the current match")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func findBall(balls []match.Ball, number int) (match.Ball, bool) {
	for _, b := range balls {
		if b.Number == number {
			return b, true
		}
	}
	return match.Ball{}, false
}

func setScore(u *match.Update, p match.PlayerNum, score int) {
	if p == match.Player2 {
		u.Player2Score = &score
		return
	}
	u.Player1Score = &score
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
