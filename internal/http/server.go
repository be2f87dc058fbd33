package http

import (
	"net/http"

	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/config"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/notifier"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/mauv0809/mahjong-club/internal/pubsub"
)

// NewServer wires the HTTP surface. bridge may be nil when Pub/Sub is not configured.
func NewServer(players player.Directory, ledgerSvc ledger.Ledger, chatSvc chat.Service, verifier identity.Verifier, sessions identity.Events, broker livequery.Broker, bridge *pubsub.Bridge, notifier notifier.Notifier, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Players:        players,
		Ledger:         ledgerSvc,
		Chat:           chatSvc,
		Verifier:       verifier,
		Sessions:       sessions,
		Broker:         broker,
		Bridge:         bridge,
		Notifier:       notifier,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Reads accept a session or the read-only API key, writes need a session.
	read := func(h http.Handler) http.Handler {
		return Chain(h, paramsMiddleware, s.durationMiddleware, s.sessionMiddleware)
	}
	write := func(h http.Handler) http.Handler {
		return Chain(h, paramsMiddleware, s.durationMiddleware, s.sessionMiddleware, s.requireIdentity)
	}
	asPlayer := func(h http.Handler) http.Handler {
		return Chain(h, paramsMiddleware, s.durationMiddleware, s.sessionMiddleware, s.requireIdentity, s.requirePlayer)
	}

	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("POST /auth/session", write(s.SignInHandler()))
	s.Router.Handle("DELETE /auth/session", write(s.SignOutHandler()))

	s.Router.Handle("GET /players", read(s.ListPlayersHandler()))
	s.Router.Handle("GET /players/me", asPlayer(s.ProfileHandler()))
	s.Router.Handle("PATCH /players/me", asPlayer(s.RenameHandler()))
	s.Router.Handle("GET /players/{id}", read(s.GetPlayerHandler()))

	s.Router.Handle("POST /matches", write(s.RecordMatchHandler()))
	s.Router.Handle("GET /matches", read(s.ListMatchesHandler()))
	s.Router.Handle("GET /matches/pending", read(s.PendingMatchesHandler()))
	s.Router.Handle("POST /matches/pending/reconcile", write(s.ReconcileHandler()))
	s.Router.Handle("GET /matches/{id}/standings", read(s.StandingsHandler()))

	s.Router.Handle("GET /chat/messages", read(s.ListMessagesHandler()))
	s.Router.Handle("POST /chat/messages", asPlayer(s.SendMessageHandler()))
	s.Router.Handle("DELETE /chat/messages/{id}", asPlayer(s.DeleteMessageHandler()))
	s.Router.Handle("GET /chat/messages/{id}/replies", read(s.ListRepliesHandler()))
	s.Router.Handle("POST /chat/messages/{id}/replies", asPlayer(s.SendReplyHandler()))
	s.Router.Handle("DELETE /chat/replies/{id}", asPlayer(s.DeleteReplyHandler()))
	s.Router.Handle("GET /chat/messages/{id}/likes", read(s.LikesHandler(chat.MessageTarget)))
	s.Router.Handle("POST /chat/messages/{id}/likes", asPlayer(s.ToggleLikeHandler(chat.MessageTarget)))
	s.Router.Handle("GET /chat/replies/{id}/likes", read(s.LikesHandler(chat.ReplyTarget)))
	s.Router.Handle("POST /chat/replies/{id}/likes", asPlayer(s.ToggleLikeHandler(chat.ReplyTarget)))
	s.Router.Handle("GET /chat/messages/{id}/thread", read(s.ThreadHandler()))
	s.Router.Handle("GET /chat/stream", read(s.StreamHandler()))

	s.Router.Handle("POST /pubsub/changes", Chain(s.PubSubChangesHandler(), paramsMiddleware, s.pushAuthMiddleware))
	s.Router.Handle("POST /slack/command/standings", Chain(s.StandingsCommandHandler(), paramsMiddleware, s.slackVerifyMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
