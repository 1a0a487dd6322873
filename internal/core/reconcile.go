// Package core provides the log synchronization logic: unread reconciliation,
// the notification gate, rendering, and group sorting/lookup helpers.
package core

import (
	"time"

	"github.com/jmylchreest/rlxui/internal/model"
)

// Epoch is the last-seen value of a group that was never opened.
var Epoch = time.Unix(0, 0).UTC()

// Reconciliation is the result of comparing a group's log against the
// time the user last viewed it.
type Reconciliation struct {
	LastSeen time.Time // effective last-seen mark (Epoch when never seen)
	AnchorID string    // earliest unread alert, empty when there is none
	Unread   []string  // ids of every alert newer than LastSeen, in log order
}

// HasUnread reports whether any alert is newer than the last-seen mark.
func (r Reconciliation) HasUnread() bool {
	return len(r.Unread) > 0
}

// Reconcile scans the log oldest to newest. The first alert with a timestamp
// strictly after lastSeen becomes the anchor. Pass seen=false when the group
// has no stored mark; it is then treated as Epoch.
func Reconcile(log model.Log, lastSeen time.Time, seen bool) Reconciliation {
	if !seen {
		lastSeen = Epoch
	}

	r := Reconciliation{LastSeen: lastSeen}
	for _, e := range log {
		if e.Kind() != model.KindAlert {
			continue
		}
		if !e.Timestamp().After(lastSeen) {
			continue
		}
		if r.AnchorID == "" {
			r.AnchorID = e.ID()
		}
		r.Unread = append(r.Unread, e.ID())
	}
	return r
}

// NextLastSeen returns the value to store after a group has been shown.
// The mark follows the wall clock, but never moves backwards.
func NextLastSeen(prev time.Time, seen bool, now time.Time) time.Time {
	if seen && prev.After(now) {
		return prev
	}
	return now
}
