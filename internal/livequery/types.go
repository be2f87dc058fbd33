package livequery

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mauv0809/mahjong-club/internal/metrics"
)

// Kind is the type of mutation a Change describes.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Topics carried by the broker.
const (
	TopicPlayers      = "players"
	TopicMatches      = "matches"
	TopicChatMessages = "chat_messages"
	TopicChatReplies  = "chat_replies"
	TopicChatLikes    = "chat_likes"
)

// Change is a single row mutation observed on a topic.
// Payload holds the msgpack encoded row, empty for deletions.
type Change struct {
	Topic   string    `msgpack:"topic" json:"topic"`
	Kind    Kind      `msgpack:"kind" json:"kind"`
	Key     string    `msgpack:"key" json:"key"`
	Scope   string    `msgpack:"scope,omitempty" json:"scope,omitempty"`
	Origin  string    `msgpack:"origin" json:"origin"`
	Payload []byte    `msgpack:"payload,omitempty" json:"payload,omitempty"`
	At      time.Time `msgpack:"at" json:"at"`
}

// Filter decides whether a subscriber is interested in a change.
type Filter func(Change) bool

// Forwarder receives every change published by this instance.
type Forwarder func(Change)

// Subscription is a live feed of changes on one topic.
type Subscription struct {
	C <-chan Change

	id      uint64
	topic   string
	filter  Filter
	ch      chan Change
	broker  *broker
	dropped atomic.Bool
	once    sync.Once
}

type broker struct {
	mu         sync.RWMutex
	origin     string
	buffer     int
	nextID     uint64
	subs       map[string]map[uint64]*Subscription
	forwarders []Forwarder
	metrics    metrics.Metrics
}
