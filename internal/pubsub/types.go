package pubsub

import (
	"cloud.google.com/go/pubsub"
	"github.com/mauv0809/mahjong-club/internal/livequery"
)

type client struct {
	client   *pubsub.Client
	teardown func()
}

// PushEnvelope is the body Pub/Sub posts to a push subscription endpoint.
type PushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
}

// Bridge relays live changes between instances through a topic.
type Bridge struct {
	client PubSubClient
	topic  string
	broker livequery.Broker
}
