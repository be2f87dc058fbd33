package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
)

// NewService creates the chat service.
func NewService(store Store, names NameResolver, broker livequery.Broker, m metrics.Metrics) Service {
	return &service{
		store:    store,
		names:    names,
		broker:   broker,
		metrics:  m,
		composer: NewComposer(),
	}
}

// cleanContent trims content and checks it is neither empty nor too long.
func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

// now is truncated to the millisecond precision the store keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *service) SendMessage(ctx context.Context, playerID, content string) (*Message, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	var m *Message
	err = s.composer.Send(playerID, func() error {
		ts := now()
		msg := Message{ID: uuid.NewString(), PlayerID: playerID, Content: content, CreatedAt: ts, UpdatedAt: ts}
		if err := s.store.CreateMessage(ctx, msg); err != nil {
			return err
		}
		m = &msg
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrSendInProgress) {
			log.Error("Failed to send message", "error", err, "playerID", playerID)
		}
		return nil, err
	}
	log.Info("Message sent", "messageID", m.ID, "playerID", playerID)
	s.publish(livequery.TopicChatMessages, livequery.KindCreated, m.ID, "", m)
	return m, nil
}

// DeleteMessage removes a message with its replies and likes.
func (s *service) DeleteMessage(ctx context.Context, playerID, messageID string) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if m.PlayerID != playerID {
		return ErrForbidden
	}
	replies, err := s.store.ListReplies(ctx, messageID)
	if err != nil {
		log.Warn("Failed to list replies before delete", "error", err, "messageID", messageID)
	}
	targets := []LikeTarget{MessageTarget(messageID)}
	for _, r := range replies {
		targets = append(targets, ReplyTarget(r.ID))
	}
	likes := s.likesOn(ctx, targets...)
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	log.Info("Message deleted", "messageID", messageID, "playerID", playerID, "replies", len(replies), "likes", len(likes))
	s.publish(livequery.TopicChatMessages, livequery.KindDeleted, messageID, "", nil)
	for _, r := range replies {
		s.publish(livequery.TopicChatReplies, livequery.KindDeleted, r.ID, messageID, nil)
	}
	s.publishLikesRemoved(likes)
	return nil
}

// likesOn collects the likes a delete will cascade away.
func (s *service) likesOn(ctx context.Context, targets ...LikeTarget) []Like {
	var all []Like
	for _, t := range targets {
		likes, err := s.store.FindLikes(ctx, t, "")
		if err != nil {
			log.Warn("Failed to list likes before delete", "error", err, "target", t.String())
			continue
		}
		all = append(all, likes...)
	}
	return all
}

func (s *service) publishLikesRemoved(likes []Like) {
	for _, l := range likes {
		s.publish(livequery.TopicChatLikes, livequery.KindDeleted, l.ID, l.Target.String(), nil)
	}
}

func (s *service) SendReply(ctx context.Context, playerID, messageID, content string) (*Reply, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetMessage(ctx, messageID); err != nil {
		return nil, err
	}
	ts := now()
	r := Reply{ID: uuid.NewString(), MessageID: messageID, PlayerID: playerID, Content: content, CreatedAt: ts, UpdatedAt: ts}
	if err := s.store.CreateReply(ctx, r); err != nil {
		log.Error("Failed to send reply", "error", err, "messageID", messageID, "playerID", playerID)
		return nil, err
	}
	log.Info("Reply sent", "replyID", r.ID, "messageID", messageID, "playerID", playerID)
	s.publish(livequery.TopicChatReplies, livequery.KindCreated, r.ID, messageID, r)
	return &r, nil
}

func (s *service) DeleteReply(ctx context.Context, playerID, replyID string) error {
	r, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return err
	}
	if r.PlayerID != playerID {
		return ErrForbidden
	}
	likes := s.likesOn(ctx, ReplyTarget(replyID))
	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		return err
	}
	log.Info("Reply deleted", "replyID", replyID, "messageID", r.MessageID, "playerID", playerID)
	s.publish(livequery.TopicChatReplies, livequery.KindDeleted, replyID, r.MessageID, nil)
	s.publishLikesRemoved(likes)
	return nil
}

// ToggleLike removes the player's like on target if there is one, otherwise
// adds it. Only the first of any duplicate likes is removed per call.
func (s *service) ToggleLike(ctx context.Context, target LikeTarget, likerID string) (*LikeSummary, error) {
	if err := s.checkTarget(ctx, target); err != nil {
		return nil, err
	}
	s.likeMu.Lock()
	existing, err := s.store.FindLikes(ctx, target, likerID)
	if err != nil {
		s.likeMu.Unlock()
		return nil, err
	}
	if len(existing) > 0 {
		if len(existing) > 1 {
			log.Warn("Found duplicate likes", "target", target.String(), "playerID", likerID, "count", len(existing))
		}
		first := existing[0]
		if err := s.store.DeleteLike(ctx, first.ID); err != nil {
			s.likeMu.Unlock()
			return nil, err
		}
		s.publish(livequery.TopicChatLikes, livequery.KindDeleted, first.ID, target.String(), nil)
	} else {
		l := Like{ID: uuid.NewString(), Target: target, PlayerID: likerID, CreatedAt: now()}
		if err := s.store.CreateLike(ctx, l); err != nil {
			s.likeMu.Unlock()
			return nil, err
		}
		s.publish(livequery.TopicChatLikes, livequery.KindCreated, l.ID, target.String(), l)
	}
	s.likeMu.Unlock()
	s.metrics.IncLikesToggled()
	return s.Likes(ctx, target, likerID)
}

func (s *service) Likes(ctx context.Context, target LikeTarget, viewerID string) (*LikeSummary, error) {
	if err := s.checkTarget(ctx, target); err != nil {
		return nil, err
	}
	likes, err := s.store.FindLikes(ctx, target, "")
	if err != nil {
		return nil, err
	}
	summary := Summarize(target, likes, viewerID)
	summary.LikerNames = s.likerNames(ctx, likes)
	return &summary, nil
}

// Summarize counts likes and checks whether viewerID is among the likers.
// It leaves LikerNames empty.
func Summarize(target LikeTarget, likes []Like, viewerID string) LikeSummary {
	summary := LikeSummary{Target: target, Count: len(likes), LikerNames: []string{}}
	for _, l := range likes {
		if l.PlayerID == viewerID {
			summary.HasLiked = true
		}
	}
	if summary.Count > MaxLikerNames {
		summary.Others = summary.Count - MaxLikerNames
	}
	return summary
}

// likerNames resolves up to MaxLikerNames names concurrently, keeping like order.
func (s *service) likerNames(ctx context.Context, likes []Like) []string {
	if len(likes) > MaxLikerNames {
		likes = likes[:MaxLikerNames]
	}
	names := make([]string, len(likes))
	var wg sync.WaitGroup
	for i, l := range likes {
		wg.Add(1)
		go func(i int, playerID string) {
			defer wg.Done()
			names[i] = s.names.ResolveName(ctx, playerID)
		}(i, l.PlayerID)
	}
	wg.Wait()
	return names
}

func (s *service) Messages(ctx context.Context) ([]Message, error) {
	return s.store.ListMessages(ctx)
}

func (s *service) Replies(ctx context.Context, messageID string) ([]Reply, error) {
	if _, err := s.store.GetMessage(ctx, messageID); err != nil {
		return nil, err
	}
	return s.store.ListReplies(ctx, messageID)
}

// Thread loads a message with its replies and likes. Like summaries that
// fail to load are left empty.
func (s *service) Thread(ctx context.Context, messageID, viewerID string) (*Thread, error) {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	replies, err := s.store.ListReplies(ctx, messageID)
	if err != nil {
		return nil, err
	}
	t := &Thread{Message: *m, Replies: replies, ReplyLikes: make(map[string]LikeSummary, len(replies))}

	target := MessageTarget(messageID)
	if likes, err := s.Likes(ctx, target, viewerID); err != nil {
		log.Warn("Failed to load message likes", "error", err, "messageID", messageID)
		t.Likes = LikeSummary{Target: target, LikerNames: []string{}}
	} else {
		t.Likes = *likes
	}
	for _, r := range replies {
		target := ReplyTarget(r.ID)
		likes, err := s.Likes(ctx, target, viewerID)
		if err != nil {
			log.Warn("Failed to load reply likes", "error", err, "replyID", r.ID)
			t.ReplyLikes[r.ID] = LikeSummary{Target: target, LikerNames: []string{}}
			continue
		}
		t.ReplyLikes[r.ID] = *likes
	}
	return t, nil
}

func (s *service) checkTarget(ctx context.Context, target LikeTarget) error {
	if err := target.Validate(); err != nil {
		return err
	}
	var err error
	if target.Kind == TargetMessage {
		_, err = s.store.GetMessage(ctx, target.ID)
	} else {
		_, err = s.store.GetReply(ctx, target.ID)
	}
	return err
}

func (s *service) publish(topic string, kind livequery.Kind, key, scope string, v any) {
	change, err := livequery.NewChange(topic, kind, key, scope, v)
	if err != nil {
		log.Error("Failed to build chat change", "error", err, "topic", topic, "key", key)
		return
	}
	s.broker.Publish(change)
}
