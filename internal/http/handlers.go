package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/slack-go/slack"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// SignInHandler announces a sign-in and returns the caller's profile.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.FromContext(r.Context())
		s.Sessions.Emit(r.Context(), identity.Event{Type: identity.SignedIn, Identity: id})

		playerID, err := s.playerIDFor(r.Context(), id)
		if err != nil {
			writeError(w, err, "Failed to load profile")
			return
		}
		s.writeProfile(w, r, id, playerID)
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.FromContext(r.Context())
		s.Sessions.Emit(r.Context(), identity.Event{Type: identity.SignedOut, Identity: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Players.List(r.Context())
		if err != nil {
			writeError(w, err, "Failed to get players")
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.FromContext(r.Context())
		s.writeProfile(w, r, id, playerIDFromContext(r))
	}
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, id identity.Identity, playerID string) {
	p, err := s.Players.FindByID(r.Context(), playerID)
	if err != nil {
		writeError(w, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Player: p, UserID: id.ID, Email: id.Email()})
}

func (s *Server) RenameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		p, err := s.Players.Rename(r.Context(), playerIDFromContext(r), req.Name)
		if err != nil {
			writeError(w, err, "Failed to rename player")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) GetPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Players.FindByID(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err, "Failed to get player")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) RecordMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ledger.RecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		req.DryRun = isDryRunFromContext(r)

		res, err := s.Ledger.RecordMatch(r.Context(), req)
		if err != nil {
			writeError(w, err, "Failed to record match")
			return
		}
		status := http.StatusCreated
		if res.Status == ledger.StatusPending {
			status = http.StatusAccepted
		}
		writeJSON(w, status, res)
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := s.Ledger.History(r.Context())
		if err != nil {
			writeError(w, err, "Failed to get matches")
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func (s *Server) StandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		standings, err := s.Ledger.Standings(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err, "Failed to get standings")
			return
		}
		writeJSON(w, http.StatusOK, standings)
	}
}

func (s *Server) PendingMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Ledger.Pending())
	}
}

func (s *Server) ReconcileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.Ledger.ReconcilePending(r.Context())
		log.Info("Manual reconcile finished", "confirmed", len(report.Confirmed), "retrying", len(report.Retrying), "discarded", len(report.Discarded))
		writeJSON(w, http.StatusOK, report)
	}
}

// StandingsCommandHandler answers the /standings Slack command with the
// standings of the given match id, or the latest match when none is given.
func (s *Server) StandingsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		matchID := strings.TrimSpace(r.FormValue("text"))

		var standings *ledger.MatchStandings
		if matchID != "" {
			ms, err := s.Ledger.Standings(r.Context(), matchID)
			if err != nil && !errors.Is(err, ledger.ErrNotFound) {
				writeError(w, err, "Failed to get standings")
				return
			}
			standings = ms
		} else {
			history, err := s.Ledger.History(r.Context())
			if err != nil {
				writeError(w, err, "Failed to get matches")
				return
			}
			if len(history) > 0 {
				standings = &history[0]
			}
		}

		if standings == nil {
			respondWithSlackMsg(w, slack.Message{Msg: slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: "No matching match recorded yet."}})
			return
		}

		msg, err := s.Notifier.FormatStandingsResponse(*standings)
		if err != nil {
			http.Error(w, "Failed to format standings", http.StatusInternalServerError)
			log.Error("Failed to format standings", "error", err)
			return
		}
		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// writeError maps domain errors to status codes. Server errors hide their cause.
func writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
		http.Error(w, msg, status)
		return
	}
	log.Warn(msg, "error", err, "status", status)
	http.Error(w, msg+": "+err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrSendInProgress):
		return http.StatusConflict
	case errors.Is(err, player.ErrEmptyName),
		errors.Is(err, player.ErrEmptyUserID),
		errors.Is(err, ledger.ErrInvalidMatch),
		errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrContentTooLong),
		errors.Is(err, chat.ErrInvalidTarget):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
