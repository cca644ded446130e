package engine

type NotificationKind string

const (
	NoteStatChanged    NotificationKind = "stat_changed"
	NoteStatFinished   NotificationKind = "stat_finished"
	NoteAgeChanged     NotificationKind = "age_changed"
	NoteStatAffected   NotificationKind = "stat_affected"
	NotePreviewCleared NotificationKind = "preview_cleared"
)

// Notification is a single ledger event. Value carries the new stat value for NoteStatChanged and
// the new age for NoteAgeChanged. Left/Right carry the raw impacts for NoteStatAffected.
type Notification struct {
	Kind  NotificationKind
	Stat  Stat
	Value float64
	Left  int
	Right int
}

// Subscription identifies one observer so it can be removed exactly.
type Subscription uint64

type subscriber struct {
	id Subscription
	fn func(Notification)
}

// Bus is an ordered observer list. Observers are called synchronously in subscription order.
// The zero value is ready to use.
type Bus struct {
	next Subscription
	subs []subscriber
}

func (b *Bus) Subscribe(fn func(Notification)) Subscription {
	b.next++
	b.subs = append(b.subs, subscriber{id: b.next, fn: fn})
	return b.next
}

// Unsubscribe removes the observer registered under id and reports whether it was present.
func (b *Bus) Unsubscribe(id Subscription) bool {
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers n to a snapshot of the current observers.
func (b *Bus) Publish(n Notification) {
	subs := append([]subscriber(nil), b.subs...)
	for _, s := range subs {
		s.fn(n)
	}
}

// Clear drops every observer.
func (b *Bus) Clear() { b.subs = nil }

func (b *Bus) Len() int { return len(b.subs) }
