package room

import "github.com/relayhq/chathub/core/message"

// ring is a fixed-capacity circular buffer of delivered messages.
// Eviction is strict FIFO: once full, each push overwrites the oldest
// entry. Not safe for concurrent use; the owning Room serializes access.
type ring struct {
	entries []message.Message
	next    int // index the next push writes to
	size    int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &ring{entries: make([]message.Message, capacity)}
}

func (r *ring) push(msg message.Message) {
	r.entries[r.next] = msg
	r.next = (r.next + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// recent returns the newest min(limit, size) messages in chronological
// order (oldest of the returned slice first), deterministic regardless of
// wrap-around.
func (r *ring) recent(limit int) []message.Message {
	if limit <= 0 || r.size == 0 {
		return nil
	}
	n := min(limit, r.size)
	out := make([]message.Message, n)
	// Walk backwards from the newest entry, filling out back-to-front.
	idx := r.next
	for i := n - 1; i >= 0; i-- {
		idx = (idx - 1 + len(r.entries)) % len(r.entries)
		out[i] = r.entries[idx]
	}
	return out
}
