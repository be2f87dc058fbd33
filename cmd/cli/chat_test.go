package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLikes(t *testing.T) {
	assert.Equal(t, "♡ 0", formatLikes(chat.LikeSummary{}))
	assert.Equal(t, "♥ 2 (Ann, Bob)", formatLikes(chat.LikeSummary{Count: 2, HasLiked: true, LikerNames: []string{"Ann", "Bob"}}))
	assert.Equal(t, "♡ 12 (Ann and 11 others)", formatLikes(chat.LikeSummary{Count: 12, LikerNames: []string{"Ann"}, Others: 11}))
}

func TestReadStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: chat_messages.created\ndata: {\"key\":\"m1\"}\n\n")
		fmt.Fprint(w, "event: resync\ndata: {\"topic\":\"chat_messages\"}\n\n")
	}))
	defer ts.Close()

	oldHost, oldToken := host, token
	host, token = ts.URL, "tok"
	defer func() { host, token = oldHost, oldToken }()

	var events []string
	err := readStream(context.Background(), "/chat/stream", func(event, data string) {
		events = append(events, event+" "+data)
	})
	require.Error(t, err, "a finished stream is reported")
	assert.Equal(t, []string{
		`chat_messages.created {"key":"m1"}`,
		`resync {"topic":"chat_messages"}`,
	}, events)
}

func TestReadStream_LongEvents(t *testing.T) {
	long := strings.Repeat("x", 4*bufio.MaxScanTokenSize)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: chat_messages.created\ndata: {\"content\":%q}\n\n", long)
		fmt.Fprint(w, "event: chat_likes.deleted\ndata: {\"key\":\"l1\"}\n\n")
	}))
	defer ts.Close()

	oldHost, oldToken := host, token
	host, token = ts.URL, "tok"
	defer func() { host, token = oldHost, oldToken }()

	var events []string
	err := readStream(context.Background(), "/chat/stream", func(event, data string) {
		events = append(events, event)
		if event == "chat_messages.created" {
			assert.Contains(t, data, long)
		}
	})
	require.EqualError(t, err, "stream closed by server", "long lines do not abort the stream")
	assert.Equal(t, []string{"chat_messages.created", "chat_likes.deleted"}, events)
}

func TestNameBookFallsBack(t *testing.T) {
	book := &nameBook{names: map[string]string{"p1": "Ann"}}
	assert.Equal(t, "Ann", book.get("p1"))
	assert.Equal(t, "Unknown player", book.get("p2"))
}
