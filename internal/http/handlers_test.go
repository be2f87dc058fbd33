package http

import (
	"bufio"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mauv0809/mahjong-club/internal/chat"
	"github.com/mauv0809/mahjong-club/internal/config"
	"github.com/mauv0809/mahjong-club/internal/database"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/namecache"
	"github.com/mauv0809/mahjong-club/internal/notifier"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/mauv0809/mahjong-club/internal/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	testSecret             = "test-jwt-secret"
	testAPIKey             = "test-api-key"
	testSlackSigningSecret = "test-signing-secret"
	testPushToken          = "test-push-token"
)

type testEnv struct {
	server   *Server
	notifier *notifier.Mock
	pubsub   *pubsub.MockPubSubClient
	verifier identity.Verifier
}

// setupTestServer initializes a new server with an in-memory database and mock clients.
func setupTestServer(t *testing.T) testEnv {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(dbTeardown)

	cfg := config.Config{
		Auth:      config.AuthConfig{JWTSecret: testSecret, APIKey: testAPIKey},
		Slack:     config.SlackConfig{SigningSecret: testSlackSigningSecret},
		PushToken: testPushToken,
	}

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)
	broker := livequery.New(metricsSvc, 64)

	names := namecache.NewMemory(time.Minute)
	t.Cleanup(names.Close)
	players := player.NewDirectory(player.NewStore(db), names, broker, metricsSvc)
	sessions := identity.NewEvents()
	player.Bootstrap(sessions, players)

	mockNotifier := notifier.NewMock()
	mockNotifier.FormatStandingsResponseFunc = func(ms ledger.MatchStandings) (any, error) {
		return slack.Message{Msg: slack.Msg{Text: "standings for " + ms.Match.ID}}, nil
	}
	ledgerSvc := ledger.New(ledger.NewStore(db), players, mockNotifier, broker, metricsSvc, 3)
	chatSvc := chat.NewService(chat.NewStore(db), players, broker, metricsSvc)

	mockPubSub := pubsub.NewMock("TEST")
	bridge := pubsub.NewBridge(mockPubSub, "chat-changes", broker)
	verifier := identity.NewVerifier(testSecret)

	server := NewServer(players, ledgerSvc, chatSvc, verifier, sessions, broker, bridge, mockNotifier, metricsSvc, metricsHandler, cfg)
	return testEnv{server: server, notifier: mockNotifier, pubsub: mockPubSub, verifier: verifier}
}

func (e testEnv) token(t *testing.T, userID, nickname string) string {
	t.Helper()
	token, err := e.verifier.Issue(identity.Identity{
		ID:         userID,
		Attributes: map[string]string{"custom:nickname": nickname, "email": userID + "@example.com"},
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (e testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Router.ServeHTTP(rr, req)
	return rr
}

func (e testEnv) signIn(t *testing.T, userID, nickname string) (string, profileResponse) {
	t.Helper()
	token := e.token(t, userID, nickname)
	rr := e.do(t, http.MethodPost, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var profile profileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	return token, profile
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthCheckHandler(t *testing.T) {
	env := setupTestServer(t)

	rr := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestAuthentication(t *testing.T) {
	env := setupTestServer(t)

	t.Run("rejects anonymous requests", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/players", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects forged tokens", func(t *testing.T) {
		forged, err := identity.NewVerifier("other-secret").Issue(identity.Identity{ID: "u1"}, time.Hour)
		require.NoError(t, err)
		rr := env.do(t, http.MethodGet, "/players", forged, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("API key may read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/chat/messages", nil)
		req.Header.Set(apiKeyHeader, testAPIKey)
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("API key may not write", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat/messages", strings.NewReader(`{"content":"hi"}`))
		req.Header.Set(apiKeyHeader, testAPIKey)
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestSignInCreatesProfileOnce(t *testing.T) {
	env := setupTestServer(t)

	_, first := env.signIn(t, "user-1", "Mei")
	_, second := env.signIn(t, "user-1", "Ignored")

	require.NotNil(t, first.Player)
	assert.Equal(t, "Mei", first.Player.Name)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "user-1@example.com", first.Email)
	assert.Equal(t, first.Player.ID, second.Player.ID)
	assert.Equal(t, "Mei", second.Player.Name, "existing profiles keep their name")

	rr := env.do(t, http.MethodGet, "/players", env.token(t, "user-1", ""), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]player.Player](t, rr), 1)
}

func TestRenameProfile(t *testing.T) {
	env := setupTestServer(t)
	token, profile := env.signIn(t, "user-1", "Mei")

	rr := env.do(t, http.MethodPatch, "/players/me", token, renameRequest{Name: "  Mei Ling  "})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Mei Ling", decode[player.Player](t, rr).Name)

	rr = env.do(t, http.MethodPatch, "/players/me", token, renameRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/players/"+profile.Player.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Mei Ling", decode[player.Player](t, rr).Name)

	rr = env.do(t, http.MethodGet, "/players/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordMatchHandler(t *testing.T) {
	env := setupTestServer(t)
	token, a := env.signIn(t, "ua", "Ann")
	_, b := env.signIn(t, "ub", "Bob")
	_, c := env.signIn(t, "uc", "Cho")
	_, d := env.signIn(t, "ud", "Dai")

	req := ledger.RecordRequest{
		Date:        "2024-05-01",
		PlayerCount: 4,
		GameType:    ledger.EastRound,
		Scores: []ledger.ScoreInput{
			{PlayerID: c.Player.ID, Score: 20000},
			{PlayerID: a.Player.ID, Score: 40000},
			{PlayerID: d.Player.ID, Score: 10000},
			{PlayerID: b.Player.ID, Score: 30000},
		},
	}

	t.Run("records and announces", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/matches", token, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		res := decode[ledger.RecordResult](t, rr)
		require.Equal(t, ledger.StatusConfirmed, res.Status)
		require.NotNil(t, res.Match)

		rr = env.do(t, http.MethodGet, "/matches/"+res.Match.ID+"/standings", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		ms := decode[ledger.MatchStandings](t, rr)
		require.Len(t, ms.Standings, 4)
		assert.Equal(t, "Ann", ms.Standings[0].PlayerName)
		assert.Equal(t, 10.0, ms.Standings[0].Result)
		assert.Equal(t, "Dai", ms.Standings[3].PlayerName)
		assert.Equal(t, -20.0, ms.Standings[3].Result)

		calls := env.notifier.Calls()
		require.Len(t, calls, 1)
		assert.False(t, calls[0].DryRun)
	})

	t.Run("dry run is passed to the announcer", func(t *testing.T) {
		env.notifier.Reset()
		rr := env.do(t, http.MethodPost, "/matches?dry_run=true", token, req)
		require.Equal(t, http.StatusCreated, rr.Code)
		for _, call := range env.notifier.Calls() {
			assert.True(t, call.DryRun)
		}
	})

	t.Run("rejects invalid matches", func(t *testing.T) {
		bad := req
		bad.PlayerCount = 5
		rr := env.do(t, http.MethodPost, "/matches", token, bad)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("lists history newest first", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/matches", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, decode[[]ledger.MatchStandings](t, rr))
	})

	t.Run("unknown match", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/matches/missing/standings", token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("no pending records", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/matches/pending", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]ledger.PendingRecord](t, rr))

		rr = env.do(t, http.MethodPost, "/matches/pending/reconcile", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[ledger.ReconcileReport](t, rr).Confirmed)
	})
}

func TestChatHandlers(t *testing.T) {
	env := setupTestServer(t)
	alice, _ := env.signIn(t, "ua", "Alice")
	bob, _ := env.signIn(t, "ub", "Bob")

	rr := env.do(t, http.MethodPost, "/chat/messages", alice, contentRequest{Content: "East round tonight?"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	msg := decode[chat.Message](t, rr)

	rr = env.do(t, http.MethodPost, "/chat/messages", alice, contentRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/chat/messages/"+msg.ID+"/replies", bob, contentRequest{Content: "Count me in"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	reply := decode[chat.Reply](t, rr)
	assert.Equal(t, msg.ID, reply.MessageID)

	rr = env.do(t, http.MethodPost, "/chat/messages/missing/replies", bob, contentRequest{Content: "?"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/chat/messages/"+msg.ID+"/likes", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[chat.LikeSummary](t, rr)
	assert.Equal(t, 1, summary.Count)
	assert.True(t, summary.HasLiked)
	assert.Equal(t, []string{"Bob"}, summary.LikerNames)

	rr = env.do(t, http.MethodGet, "/chat/messages/"+msg.ID+"/likes", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary = decode[chat.LikeSummary](t, rr)
	assert.Equal(t, 1, summary.Count)
	assert.False(t, summary.HasLiked)

	rr = env.do(t, http.MethodPost, "/chat/replies/"+reply.ID+"/likes", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/chat/messages/"+msg.ID+"/thread", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	thread := decode[chat.Thread](t, rr)
	assert.Equal(t, msg.ID, thread.Message.ID)
	require.Len(t, thread.Replies, 1)
	assert.True(t, thread.ReplyLikes[reply.ID].HasLiked)

	rr = env.do(t, http.MethodDelete, "/chat/messages/"+msg.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.do(t, http.MethodDelete, "/chat/replies/"+reply.ID, alice, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodDelete, "/chat/messages/"+msg.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/chat/messages", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]chat.Message](t, rr))
	rr = env.do(t, http.MethodGet, "/chat/messages/"+msg.ID+"/replies", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "replies of a deleted message are gone")
	rr = env.do(t, http.MethodGet, "/chat/messages/"+msg.ID+"/likes", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "likes of a deleted message are gone")
	rr = env.do(t, http.MethodGet, "/chat/replies/"+reply.ID+"/likes", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "likes of a cascaded reply are gone")
}

func TestChatHandlers_ContentLimits(t *testing.T) {
	env := setupTestServer(t)
	alice, _ := env.signIn(t, "ua", "Alice")

	rr := env.do(t, http.MethodPost, "/chat/messages", alice, contentRequest{Content: strings.Repeat("字", chat.MaxContentLength)})
	require.Equal(t, http.StatusCreated, rr.Code, "content at the limit is accepted")
	msg := decode[chat.Message](t, rr)

	rr = env.do(t, http.MethodPost, "/chat/messages", alice, contentRequest{Content: strings.Repeat("a", chat.MaxContentLength+1)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = env.do(t, http.MethodPost, "/chat/messages/"+msg.ID+"/replies", alice, contentRequest{Content: strings.Repeat("a", chat.MaxContentLength+1)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/chat/messages", alice, contentRequest{Content: strings.Repeat("a", maxContentBody)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = env.do(t, http.MethodGet, "/chat/messages", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]chat.Message](t, rr), 1)
}

func TestStreamHandler(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.signIn(t, "ua", "Alice")

	ts := httptest.NewServer(env.server)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/chat/stream", nil)
	require.NoError(t, err)
	req.Header.Set(apiKeyHeader, testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rr := env.do(t, http.MethodPost, "/chat/messages", token, contentRequest{Content: "live"})
	require.Equal(t, http.StatusCreated, rr.Code)
	msg := decode[chat.Message](t, rr)

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	require.NotEmpty(t, data, "no event received")
	assert.Equal(t, livequery.TopicChatMessages+".created", event)

	var change livequery.Change
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, msg.ID, change.Key)
	var payload chat.Message
	require.NoError(t, change.Decode(&payload))
	assert.Equal(t, "live", payload.Content)
}

func TestPubSubChangesHandler(t *testing.T) {
	env := setupTestServer(t)
	sub := env.server.Broker.Subscribe(livequery.TopicChatMessages, nil)
	defer sub.Close()

	change := livequery.Change{Topic: livequery.TopicChatMessages, Kind: livequery.KindDeleted, Key: "m1", Origin: "other-instance"}
	raw, err := msgpack.Marshal(change)
	require.NoError(t, err)
	body := fmt.Sprintf(`{"subscription":"s","message":{"data":%q,"messageId":"1"}}`, base64.StdEncoding.EncodeToString(raw))

	push := func(target, token, payload string) int {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(payload))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("Rejects pushes without the shared token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, push("/pubsub/changes", "", body))
		assert.Equal(t, http.StatusUnauthorized, push("/pubsub/changes", "wrong-token", body))
		assert.Equal(t, http.StatusUnauthorized, push("/pubsub/changes?token=wrong-token", "", body))
		select {
		case got := <-sub.C:
			t.Fatalf("unauthenticated push was delivered: %+v", got)
		default:
		}
	})

	t.Run("Delivers authenticated pushes", func(t *testing.T) {
		require.Equal(t, http.StatusOK, push("/pubsub/changes", testPushToken, body))
		select {
		case got := <-sub.C:
			assert.Equal(t, "m1", got.Key)
		case <-time.After(time.Second):
			t.Fatal("pushed change was not delivered")
		}

		require.Equal(t, http.StatusOK, push("/pubsub/changes?token="+testPushToken, "", body))
		select {
		case got := <-sub.C:
			assert.Equal(t, "m1", got.Key)
		case <-time.After(time.Second):
			t.Fatal("pushed change was not delivered")
		}
	})

	t.Run("Rejects malformed messages", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, push("/pubsub/changes", testPushToken, "not json"))
	})

	t.Run("Refuses every push when no token is configured", func(t *testing.T) {
		env.server.Cfg.PushToken = ""
		defer func() { env.server.Cfg.PushToken = testPushToken }()
		assert.Equal(t, http.StatusUnauthorized, push("/pubsub/changes", "", body))
		assert.Equal(t, http.StatusUnauthorized, push("/pubsub/changes", testPushToken, body))
	})
}

// createSlackCommandRequest creates an http.Request suitable for testing Slack slash commands,
// including the necessary signature and timestamp headers for verification.
func createSlackCommandRequest(t *testing.T, targetURL string, form url.Values, signingSecret string) *http.Request {
	t.Helper()

	body := form.Encode()
	req, err := http.NewRequest(http.MethodPost, targetURL, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	timestamp := time.Now().Unix()
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(timestamp, 10))

	baseString := fmt.Sprintf("v0:%d:%s", timestamp, body)
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(h.Sum(nil)))

	return req
}

func TestStandingsCommandHandler(t *testing.T) {
	env := setupTestServer(t)

	t.Run("rejects bad signatures", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/standings", url.Values{}, "wrong-secret")
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("answers when nothing is recorded", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/standings", url.Values{}, testSlackSigningSecret)
		rr := httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "No matching match")
	})

	t.Run("formats the latest match", func(t *testing.T) {
		token, a := env.signIn(t, "ua", "Ann")
		_, b := env.signIn(t, "ub", "Bob")
		_, c := env.signIn(t, "uc", "Cho")
		rr := env.do(t, http.MethodPost, "/matches", token, ledger.RecordRequest{
			Date:        "2024-05-02",
			PlayerCount: 3,
			GameType:    ledger.FullMatch,
			Scores: []ledger.ScoreInput{
				{PlayerID: a.Player.ID, Score: 50000},
				{PlayerID: b.Player.ID, Score: 30000},
				{PlayerID: c.Player.ID, Score: 25000},
			},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		res := decode[ledger.RecordResult](t, rr)

		req := createSlackCommandRequest(t, "/slack/command/standings", url.Values{}, testSlackSigningSecret)
		rr = httptest.NewRecorder()
		env.server.Router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "standings for "+res.Match.ID)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, http.MethodGet, "/health", "", nil)
	env.signIn(t, "ua", "Ann")

	rr := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mahjong_profiles_created_total 1")
}
