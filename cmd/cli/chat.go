package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/spf13/cobra"
)

const streamBackoff = 3 * time.Second

var (
	likeReply    bool
	deleteReply  bool
	threadReply  string
	watchRefresh time.Duration
	watchMessage string
)

func init() {
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(threadCmd)
	rootCmd.AddCommand(watchCmd)

	likeCmd.Flags().BoolVar(&likeReply, "reply", false, "The id is a reply id")
	deleteCmd.Flags().BoolVar(&deleteReply, "reply", false, "The id is a reply id")
	threadCmd.Flags().StringVar(&threadReply, "reply", "", "Post this reply to the thread")

	refresh := chat.DefaultRefreshInterval
	if raw := os.Getenv("CHAT_REFRESH_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			refresh = d
		}
	}
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", refresh, "Full reload interval")
	watchCmd.Flags().StringVar(&watchMessage, "message", "", "Watch the replies of one message instead of the message list")
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List chat messages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(cmd.Context(), "/chat/messages")
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Post a chat message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.Context(), http.MethodPost, "/chat/messages", map[string]string{"content": strings.Join(args, " ")})
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <message-id> <text>",
	Short: "Reply to a chat message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.Context(), http.MethodPost, "/chat/messages/"+args[0]+"/replies", map[string]string{"content": strings.Join(args[1:], " ")})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your messages or replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/chat/messages/" + args[0]
		if deleteReply {
			endpoint = "/chat/replies/" + args[0]
		}
		return performRequest(cmd.Context(), http.MethodDelete, endpoint, nil)
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <id>",
	Short: "Like or unlike a message or reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := chat.MessageTarget(args[0])
		if likeReply {
			target = chat.ReplyTarget(args[0])
		}
		var summary chat.LikeSummary
		if err := fetchJSON(cmd.Context(), http.MethodPost, likesEndpoint(target), nil, &summary); err != nil {
			return err
		}
		fmt.Println(formatLikes(summary))
		return nil
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread <message-id>",
	Short: "Show a message with its replies and likes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		names := loadNames(ctx)

		view := chat.NewThreadView()
		renderThread(view, names)
		thread, err := fetchThread(ctx, args[0])
		if err != nil {
			return err
		}
		view = view.Load(thread)
		if threadReply == "" {
			renderThread(view, names)
			return nil
		}

		view = view.ToggleReplyForm()
		renderThread(view, names)
		if err := fetchJSON(ctx, http.MethodPost, "/chat/messages/"+args[0]+"/replies", map[string]string{"content": threadReply}, nil); err != nil {
			return err
		}
		if thread, err = fetchThread(ctx, args[0]); err != nil {
			return err
		}
		view = view.Load(thread).ReplySent()
		renderThread(view, names)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the chat live",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		names := loadNames(ctx)

		if watchMessage != "" {
			feed, err := chat.NewFeed(ctx, chat.FeedConfig[chat.Reply]{
				Topic:           livequery.TopicChatReplies,
				Filter:          func(c livequery.Change) bool { return c.Scope == watchMessage },
				Order:           chat.OldestFirst,
				RefreshInterval: watchRefresh,
				Load: func(ctx context.Context) ([]chat.Reply, error) {
					var replies []chat.Reply
					err := fetchJSON(ctx, http.MethodGet, "/chat/messages/"+watchMessage+"/replies", nil, &replies)
					return replies, err
				},
				OnUpdate: func(replies []chat.Reply) { printReplies(replies, names) },
			})
			if err != nil {
				return err
			}
			defer feed.Close()
			follow(ctx, "/chat/stream?messageId="+watchMessage, feed.Apply, feed.MarkUnhealthy, func() { feed.Refresh(ctx) })
			return nil
		}

		feed, err := chat.NewFeed(ctx, chat.FeedConfig[chat.Message]{
			Topic:           livequery.TopicChatMessages,
			Order:           chat.NewestFirst,
			RefreshInterval: watchRefresh,
			Load: func(ctx context.Context) ([]chat.Message, error) {
				var messages []chat.Message
				err := fetchJSON(ctx, http.MethodGet, "/chat/messages", nil, &messages)
				return messages, err
			},
			OnUpdate: func(messages []chat.Message) { printMessages(messages, names) },
		})
		if err != nil {
			return err
		}
		defer feed.Close()
		follow(ctx, "/chat/stream", feed.Apply, feed.MarkUnhealthy, func() { feed.Refresh(ctx) })
		return nil
	},
}

// follow reads the change stream until ctx ends, reconnecting after errors.
func follow(ctx context.Context, endpoint string, apply func(livequery.Change), unhealthy func(), resync func()) {
	for {
		err := readStream(ctx, endpoint, func(event, data string) {
			if event == "resync" {
				resync()
				return
			}
			var change livequery.Change
			if err := json.Unmarshal([]byte(data), &change); err != nil {
				log.Warn("Skipping malformed stream event", "error", err, "event", event)
				return
			}
			apply(change)
		})
		if ctx.Err() != nil {
			return
		}
		log.Warn("Chat stream interrupted, reconnecting", "error", err, "in", streamBackoff)
		unhealthy()
		select {
		case <-ctx.Done():
			return
		case <-time.After(streamBackoff):
			resync()
		}
	}
}

// maxEventLine bounds one stream line. A maximum length message encodes
// well past bufio's default token size.
const maxEventLine = 1 << 20

func readStream(ctx context.Context, endpoint string, handle func(event, data string)) error {
	req, err := newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxEventLine)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			handle(event, strings.TrimPrefix(line, "data: "))
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// nameBook resolves player ids for display. It is loaded once and read only after.
type nameBook struct {
	names map[string]string
}

func loadNames(ctx context.Context) *nameBook {
	book := &nameBook{names: map[string]string{}}
	var players []player.Player
	if err := fetchJSON(ctx, http.MethodGet, "/players", nil, &players); err != nil {
		log.Warn("Failed to load player names", "error", err)
		return book
	}
	for _, p := range players {
		book.names[p.ID] = p.Name
	}
	return book
}

func (b *nameBook) get(id string) string {
	if name, ok := b.names[id]; ok {
		return name
	}
	return player.UnknownName
}

func fetchThread(ctx context.Context, messageID string) (*chat.Thread, error) {
	var thread chat.Thread
	if err := fetchJSON(ctx, http.MethodGet, "/chat/messages/"+messageID+"/thread", nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func likesEndpoint(target chat.LikeTarget) string {
	if target.Kind == chat.TargetReply {
		return "/chat/replies/" + target.ID + "/likes"
	}
	return "/chat/messages/" + target.ID + "/likes"
}

func formatLikes(s chat.LikeSummary) string {
	if s.Count == 0 {
		return "♡ 0"
	}
	heart := "♡"
	if s.HasLiked {
		heart = "♥"
	}
	who := strings.Join(s.LikerNames, ", ")
	if s.Others > 0 {
		who = fmt.Sprintf("%s and %d others", who, s.Others)
	}
	return fmt.Sprintf("%s %d (%s)", heart, s.Count, who)
}

func renderThread(view chat.ThreadView, names *nameBook) {
	if view.Phase == chat.Loading {
		fmt.Println("Loading thread...")
		return
	}
	t := view.Thread
	fmt.Printf("%s  %s: %s  %s\n", t.Message.CreatedAt.Local().Format("2006-01-02 15:04"), names.get(t.Message.PlayerID), t.Message.Content, formatLikes(t.Likes))
	for _, r := range t.Replies {
		fmt.Printf("    %s  %s: %s  %s\n", r.CreatedAt.Local().Format("15:04"), names.get(r.PlayerID), r.Content, formatLikes(t.ReplyLikes[r.ID]))
	}
	if view.ReplyFormOpen {
		fmt.Println("    > sending reply...")
	}
}

func printMessages(messages []chat.Message, names *nameBook) {
	fmt.Printf("--- %d messages (%s) ---\n", len(messages), time.Now().Format("15:04:05"))
	for _, m := range messages {
		fmt.Printf("[%s] %s  %s: %s\n", m.ID[:min(8, len(m.ID))], m.CreatedAt.Local().Format("2006-01-02 15:04"), names.get(m.PlayerID), m.Content)
	}
}

func printReplies(replies []chat.Reply, names *nameBook) {
	fmt.Printf("--- %d replies (%s) ---\n", len(replies), time.Now().Format("15:04:05"))
	for _, r := range replies {
		fmt.Printf("[%s] %s  %s: %s\n", r.ID[:min(8, len(r.ID))], r.CreatedAt.Local().Format("15:04"), names.get(r.PlayerID), r.Content)
	}
}
