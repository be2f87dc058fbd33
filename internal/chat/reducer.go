package chat

import (
	"sort"
	"time"
)

// Item is anything the reducer can keep in an ordered list.
type Item interface {
	Key() string
	Created() time.Time
}

// EventKind is the type of a list event.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventSnapshot EventKind = "snapshot"
)

// Event is one input to Reduce. Item is set for created and updated events,
// Key for deleted events and Items for snapshots.
type Event[T Item] struct {
	Kind  EventKind
	Item  T
	Key   string
	Items []T
}

// Order is the sort direction of a reduced list.
type Order int

const (
	// NewestFirst sorts by creation time descending, as the message list is shown.
	NewestFirst Order = iota
	// OldestFirst sorts by creation time ascending, as replies are shown.
	OldestFirst
)

// Reduce applies ev to state and returns the new list. state is never modified.
// Duplicate creates and updates for unknown keys are ignored, so replaying
// events in any order followed by a snapshot converges on the snapshot.
func Reduce[T Item](state []T, ev Event[T], order Order) []T {
	switch ev.Kind {
	case EventCreated:
		if indexOf(state, ev.Item.Key()) >= 0 {
			return state
		}
		next := make([]T, 0, len(state)+1)
		next = append(next, ev.Item)
		next = append(next, state...)
		sortItems(next, order)
		return next
	case EventUpdated:
		i := indexOf(state, ev.Item.Key())
		if i < 0 {
			return state
		}
		next := append([]T(nil), state...)
		next[i] = ev.Item
		sortItems(next, order)
		return next
	case EventDeleted:
		i := indexOf(state, ev.Key)
		if i < 0 {
			return state
		}
		next := make([]T, 0, len(state)-1)
		next = append(next, state[:i]...)
		return append(next, state[i+1:]...)
	case EventSnapshot:
		next := append([]T(nil), ev.Items...)
		sortItems(next, order)
		return next
	default:
		return state
	}
}

func indexOf[T Item](items []T, key string) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// sortItems orders by creation time, breaking ties by key so the result
// does not depend on arrival order.
func sortItems[T Item](items []T, order Order) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := items[i].Created(), items[j].Created()
		if !ci.Equal(cj) {
			if order == OldestFirst {
				return ci.Before(cj)
			}
			return ci.After(cj)
		}
		if order == OldestFirst {
			return items[i].Key() < items[j].Key()
		}
		return items[i].Key() > items[j].Key()
	})
}
