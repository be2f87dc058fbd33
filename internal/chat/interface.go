package chat

import "context"

// Store persists messages, replies and likes.
type Store interface {
	CreateMessage(ctx context.Context, m Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error

	CreateReply(ctx context.Context, r Reply) error
	GetReply(ctx context.Context, id string) (*Reply, error)
	ListReplies(ctx context.Context, messageID string) ([]Reply, error)
	DeleteReply(ctx context.Context, id string) error

	CreateLike(ctx context.Context, l Like) error
	// FindLikes returns likes on target, optionally only those by playerID.
	FindLikes(ctx context.Context, target LikeTarget, playerID string) ([]Like, error)
	DeleteLike(ctx context.Context, id string) error
}

// NameResolver turns player ids into display names.
type NameResolver interface {
	ResolveName(ctx context.Context, playerID string) string
}

// Service is the chat API used by handlers.
type Service interface {
	SendMessage(ctx context.Context, playerID, content string) (*Message, error)
	DeleteMessage(ctx context.Context, playerID, messageID string) error
	SendReply(ctx context.Context, playerID, messageID, content string) (*Reply, error)
	DeleteReply(ctx context.Context, playerID, replyID string) error
	ToggleLike(ctx context.Context, target LikeTarget, likerID string) (*LikeSummary, error)
	Likes(ctx context.Context, target LikeTarget, viewerID string) (*LikeSummary, error)
	Messages(ctx context.Context) ([]Message, error)
	Replies(ctx context.Context, messageID string) ([]Reply, error)
	Thread(ctx context.Context, messageID, viewerID string) (*Thread, error)
}
