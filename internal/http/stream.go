package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/livequery"
)

// ResyncEvent tells stream clients that changes were dropped and a full
// reload is needed.
const ResyncEvent = "resync"

const streamKeepAlive = 25 * time.Second

// StreamHandler streams chat changes as Server-Sent Events. The optional
// messageId query parameter narrows the stream to one thread.
func (s *Server) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		messageID := r.URL.Query().Get("messageId")
		var messages, replies livequery.Filter
		if messageID != "" {
			messages = func(c livequery.Change) bool { return c.Key == messageID }
			replies = func(c livequery.Change) bool { return c.Scope == messageID }
		}
		subs := []*livequery.Subscription{
			s.Broker.Subscribe(livequery.TopicChatMessages, messages),
			s.Broker.Subscribe(livequery.TopicChatReplies, replies),
			s.Broker.Subscribe(livequery.TopicChatLikes, nil),
		}
		defer func() {
			for _, sub := range subs {
				sub.Close()
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		log.Info("Chat stream opened", "remote", r.RemoteAddr, "messageID", messageID)

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			var (
				change livequery.Change
				sub    *livequery.Subscription
			)
			select {
			case <-r.Context().Done():
				log.Info("Chat stream closed", "remote", r.RemoteAddr)
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
				continue
			case change = <-subs[0].C:
				sub = subs[0]
			case change = <-subs[1].C:
				sub = subs[1]
			case change = <-subs[2].C:
				sub = subs[2]
			}

			if sub.Dropped() {
				if err := writeEvent(w, ResyncEvent, map[string]string{"topic": sub.Topic()}); err != nil {
					log.Warn("Failed to write stream event", "error", err)
					return
				}
			}
			if err := writeEvent(w, change.Topic+"."+string(change.Kind), change); err != nil {
				log.Warn("Failed to write stream event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// PubSubChangesHandler is the push endpoint for changes relayed by other instances.
func (s *Server) PubSubChangesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Bridge == nil {
			http.Error(w, "Pub/Sub relay is disabled", http.StatusServiceUnavailable)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		defer r.Body.Close()

		if err := s.Bridge.Receive(body); err != nil {
			log.Error("Failed to process pushed change", "error", err)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
