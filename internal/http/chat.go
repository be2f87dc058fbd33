package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mauv0809/mahjong-club/internal/chat"
)

// maxContentBody bounds a content request body, leaving room for JSON
// escaping of a maximum length message.
const maxContentBody = 64 << 10

func decodeContent(w http.ResponseWriter, r *http.Request) (contentRequest, bool) {
	var req contentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return req, false
		}
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) ListMessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := s.Chat.Messages(r.Context())
		if err != nil {
			writeError(w, err, "Failed to get messages")
			return
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeContent(w, r)
		if !ok {
			return
		}
		m, err := s.Chat.SendMessage(r.Context(), playerIDFromContext(r), req.Content)
		if err != nil {
			writeError(w, err, "Failed to send message")
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) DeleteMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Chat.DeleteMessage(r.Context(), playerIDFromContext(r), r.PathValue("id")); err != nil {
			writeError(w, err, "Failed to delete message")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListRepliesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		replies, err := s.Chat.Replies(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err, "Failed to get replies")
			return
		}
		writeJSON(w, http.StatusOK, replies)
	}
}

func (s *Server) SendReplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeContent(w, r)
		if !ok {
			return
		}
		reply, err := s.Chat.SendReply(r.Context(), playerIDFromContext(r), r.PathValue("id"), req.Content)
		if err != nil {
			writeError(w, err, "Failed to send reply")
			return
		}
		writeJSON(w, http.StatusCreated, reply)
	}
}

func (s *Server) DeleteReplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Chat.DeleteReply(r.Context(), playerIDFromContext(r), r.PathValue("id")); err != nil {
			writeError(w, err, "Failed to delete reply")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LikesHandler(target func(id string) chat.LikeTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.Chat.Likes(r.Context(), target(r.PathValue("id")), s.viewerID(r))
		if err != nil {
			writeError(w, err, "Failed to get likes")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) ToggleLikeHandler(target func(id string) chat.LikeTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.Chat.ToggleLike(r.Context(), target(r.PathValue("id")), playerIDFromContext(r))
		if err != nil {
			writeError(w, err, "Failed to toggle like")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) ThreadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		thread, err := s.Chat.Thread(r.Context(), r.PathValue("id"), s.viewerID(r))
		if err != nil {
			writeError(w, err, "Failed to get thread")
			return
		}
		writeJSON(w, http.StatusOK, thread)
	}
}
