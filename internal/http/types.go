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

type Server struct {
	Players        player.Directory
	Ledger         ledger.Ledger
	Chat           chat.Service
	Verifier       identity.Verifier
	Sessions       identity.Events
	Broker         livequery.Broker
	Bridge         *pubsub.Bridge
	Notifier       notifier.Notifier
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}

type profileResponse struct {
	Player *player.Player `json:"player"`
	UserID string         `json:"userId"`
	Email  string         `json:"email,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type contentRequest struct {
	Content string `json:"content"`
}
