package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/mahjong-club/internal/ledger"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func sampleStandings() ledger.MatchStandings {
	return ledger.MatchStandings{
		Match: ledger.Match{ID: "m1", Date: "2024-05-01", PlayerCount: 4, GameType: ledger.FullMatch},
		Standings: []ledger.Standing{
			{PlayerName: "Ann", Score: 40000, Result: 10},
			{PlayerName: "Bob", Score: 30000, Result: 0},
			{PlayerName: "Cho", Score: 20000, Result: -10},
			{PlayerName: "Dai", Score: 10000, Result: -20},
		},
	}
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, true)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

// Test the public method to ensure it calls the private sender.
func TestSendStandings_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}

	notifier := NewNotifierWithAPI(api, "C123", metrics.NewMock())
	require.NoError(t, notifier.SendStandings(sampleStandings(), false))
	assert.True(t, postMessageCalled, "PostMessageContext should have been called via SendStandings")
}

func TestFormatStandings(t *testing.T) {
	client := &Notifier{channelID: "C123"}
	msg := client.formatStandings(sampleStandings())
	// header, details, four ranks, context
	require.Len(t, msg.Blocks.BlockSet, 7)

	header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
	require.True(t, ok, "Block 0 should be a HeaderBlock")
	assert.Contains(t, header.Text.Text, "Match recorded")

	details, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "Date: 2024-05-01\nGame: Full match, 4 players", details.Text.Text)

	first, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "1. 🥇 Ann\n> Score: 40000 | Result: +10.0", first.Text.Text)

	last, ok := msg.Blocks.BlockSet[5].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "4.  Dai\n> Score: 10000 | Result: -20.0", last.Text.Text)

	ctxBlock, ok := msg.Blocks.BlockSet[6].(*slackapi.ContextBlock)
	require.True(t, ok)
	require.Len(t, ctxBlock.ContextElements.Elements, 1)
	text, ok := ctxBlock.ContextElements.Elements[0].(*slackapi.TextBlockObject)
	require.True(t, ok)
	assert.Equal(t, "Starting stake: 30000", text.Text)
}

func TestFormatStandings_Empty(t *testing.T) {
	client := &Notifier{channelID: "C123"}
	ms := sampleStandings()
	ms.Standings = nil
	msg := client.formatStandings(ms)
	require.Len(t, msg.Blocks.BlockSet, 3)
}
