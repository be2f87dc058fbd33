package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, minutes int) Message {
	ts := t0.Add(time.Duration(minutes) * time.Minute)
	return Message{ID: id, Content: id, CreatedAt: ts, UpdatedAt: ts}
}

func keys[T Item](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key())
	}
	return out
}

func TestReduce_CreateSortsNewestFirst(t *testing.T) {
	var state []Message
	state = Reduce(state, Event[Message]{Kind: EventCreated, Item: msg("b", 2)}, NewestFirst)
	state = Reduce(state, Event[Message]{Kind: EventCreated, Item: msg("a", 1)}, NewestFirst)
	state = Reduce(state, Event[Message]{Kind: EventCreated, Item: msg("c", 3)}, NewestFirst)
	assert.Equal(t, []string{"c", "b", "a"}, keys(state))
}

func TestReduce_RepliesOldestFirst(t *testing.T) {
	var state []Reply
	for _, r := range []Reply{
		{ID: "r2", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "r3", CreatedAt: t0.Add(3 * time.Minute)},
		{ID: "r1", CreatedAt: t0.Add(1 * time.Minute)},
	} {
		state = Reduce(state, Event[Reply]{Kind: EventCreated, Item: r}, OldestFirst)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, keys(state))
}

func TestReduce_DuplicateCreateIsIgnored(t *testing.T) {
	hello := msg("hello", 1)
	state := Reduce(nil, Event[Message]{Kind: EventCreated, Item: hello}, NewestFirst)
	state = Reduce(state, Event[Message]{Kind: EventCreated, Item: hello}, NewestFirst)
	require.Len(t, state, 1)
	assert.Equal(t, "hello", state[0].ID)
}

func TestReduce_UpdateReplacesInPlace(t *testing.T) {
	state := Reduce(nil, Event[Message]{Kind: EventSnapshot, Items: []Message{msg("a", 1), msg("b", 2)}}, NewestFirst)
	edited := msg("a", 1)
	edited.Content = "edited"
	state = Reduce(state, Event[Message]{Kind: EventUpdated, Item: edited}, NewestFirst)
	require.Len(t, state, 2)
	assert.Equal(t, "edited", state[1].Content)

	moved := msg("a", 5)
	state = Reduce(state, Event[Message]{Kind: EventUpdated, Item: moved}, NewestFirst)
	assert.Equal(t, []string{"a", "b"}, keys(state), "updates re-sort")
}

func TestReduce_UpdateUnknownIsIgnored(t *testing.T) {
	state := Reduce(nil, Event[Message]{Kind: EventSnapshot, Items: []Message{msg("a", 1)}}, NewestFirst)
	next := Reduce(state, Event[Message]{Kind: EventUpdated, Item: msg("ghost", 2)}, NewestFirst)
	assert.Equal(t, []string{"a"}, keys(next))
}

func TestReduce_Delete(t *testing.T) {
	state := Reduce(nil, Event[Message]{Kind: EventSnapshot, Items: []Message{msg("a", 1), msg("b", 2), msg("c", 3)}}, NewestFirst)
	state = Reduce(state, Event[Message]{Kind: EventDeleted, Key: "b"}, NewestFirst)
	assert.Equal(t, []string{"c", "a"}, keys(state))

	same := Reduce(state, Event[Message]{Kind: EventDeleted, Key: "b"}, NewestFirst)
	assert.Equal(t, []string{"c", "a"}, keys(same), "deleting twice is harmless")
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := []Message{msg("b", 2), msg("a", 1)}
	_ = Reduce(state, Event[Message]{Kind: EventCreated, Item: msg("c", 3)}, NewestFirst)
	_ = Reduce(state, Event[Message]{Kind: EventDeleted, Key: "b"}, NewestFirst)
	_ = Reduce(state, Event[Message]{Kind: EventUpdated, Item: msg("a", 9)}, NewestFirst)
	assert.Equal(t, []string{"b", "a"}, keys(state))
	assert.Equal(t, t0.Add(time.Minute), state[1].CreatedAt)
}

func TestReduce_CreatesThenSnapshotAreOrderIndependent(t *testing.T) {
	created := []Message{msg("a", 1), msg("b", 2), msg("c", 3), msg("d", 3)}
	snapshot := []Message{msg("b", 2), msg("d", 3), msg("e", 4), msg("c", 3)}
	want := Reduce(nil, Event[Message]{Kind: EventSnapshot, Items: snapshot}, NewestFirst)

	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 1, 3, 0, 0}}
	for _, order := range orders {
		var state []Message
		for _, i := range order {
			state = Reduce(state, Event[Message]{Kind: EventCreated, Item: created[i]}, NewestFirst)
		}
		state = Reduce(state, Event[Message]{Kind: EventSnapshot, Items: snapshot}, NewestFirst)
		assert.Equal(t, keys(want), keys(state))
	}
	assert.Equal(t, []string{"e", "d", "c", "b"}, keys(want))
}

func TestReduce_UnknownEventKeepsState(t *testing.T) {
	state := []Message{msg("a", 1)}
	assert.Equal(t, state, Reduce(state, Event[Message]{Kind: "bogus"}, NewestFirst))
}
