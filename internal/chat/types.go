package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
)

const (
	// MaxLikerNames is how many liker names a summary lists before
	// collapsing the rest into a count.
	MaxLikerNames = 10
	// MaxContentLength caps message and reply content, in characters.
	MaxContentLength = 4000
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("only the author may do this")
	ErrEmptyContent   = errors.New("content must not be empty")
	ErrContentTooLong = fmt.Errorf("content must be at most %d characters", MaxContentLength)
	ErrInvalidTarget  = errors.New("invalid like target")
	ErrSendInProgress = errors.New("a send is already in progress")
)

// Message is a top level chat post.
type Message struct {
	ID        string    `json:"id" msgpack:"id"`
	PlayerID  string    `json:"playerId" msgpack:"player_id"`
	Content   string    `json:"content" msgpack:"content"`
	CreatedAt time.Time `json:"createdAt" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

func (m Message) Key() string        { return m.ID }
func (m Message) Created() time.Time { return m.CreatedAt }

// Reply is an answer in a message thread.
type Reply struct {
	ID        string    `json:"id" msgpack:"id"`
	MessageID string    `json:"chatMessageId" msgpack:"chat_message_id"`
	PlayerID  string    `json:"playerId" msgpack:"player_id"`
	Content   string    `json:"content" msgpack:"content"`
	CreatedAt time.Time `json:"createdAt" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

func (r Reply) Key() string        { return r.ID }
func (r Reply) Created() time.Time { return r.CreatedAt }

// TargetKind names what a like points at.
type TargetKind string

const (
	TargetMessage TargetKind = "message"
	TargetReply   TargetKind = "reply"
)

// LikeTarget is either a message or a reply. Build one with MessageTarget or ReplyTarget.
type LikeTarget struct {
	Kind TargetKind `json:"kind" msgpack:"kind"`
	ID   string     `json:"id" msgpack:"id"`
}

// MessageTarget points a like at a message.
func MessageTarget(id string) LikeTarget {
	return LikeTarget{Kind: TargetMessage, ID: id}
}

// ReplyTarget points a like at a reply.
func ReplyTarget(id string) LikeTarget {
	return LikeTarget{Kind: TargetReply, ID: id}
}

// Validate reports whether the target is well formed.
func (t LikeTarget) Validate() error {
	if t.ID == "" || (t.Kind != TargetMessage && t.Kind != TargetReply) {
		return fmt.Errorf("%w: %q/%q", ErrInvalidTarget, t.Kind, t.ID)
	}
	return nil
}

func (t LikeTarget) String() string {
	return string(t.Kind) + ":" + t.ID
}

// Like marks that a player likes a message or a reply.
type Like struct {
	ID        string     `json:"id" msgpack:"id"`
	Target    LikeTarget `json:"target" msgpack:"target"`
	PlayerID  string     `json:"playerId" msgpack:"player_id"`
	CreatedAt time.Time  `json:"createdAt" msgpack:"created_at"`
}

func (l Like) Key() string        { return l.ID }
func (l Like) Created() time.Time { return l.CreatedAt }

// LikeSummary is what a viewer sees for a target's likes.
type LikeSummary struct {
	Target     LikeTarget `json:"target"`
	Count      int        `json:"count"`
	HasLiked   bool       `json:"hasLiked"`
	LikerNames []string   `json:"likerNames"`
	// Others counts likers beyond the listed names.
	Others int `json:"others"`
}

// Thread is a message with its replies and like summaries.
type Thread struct {
	Message    Message                `json:"message"`
	Likes      LikeSummary            `json:"likes"`
	Replies    []Reply                `json:"replies"`
	ReplyLikes map[string]LikeSummary `json:"replyLikes"`
}

type store struct {
	db *sql.DB
	mu sync.RWMutex
}

type service struct {
	store    Store
	names    NameResolver
	broker   livequery.Broker
	metrics  metrics.Metrics
	composer *Composer
	// likeMu serializes toggles so a find-then-create cannot race.
	likeMu sync.Mutex
}
