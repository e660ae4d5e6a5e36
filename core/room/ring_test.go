package room

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/core/message"
)

func push(r *ring, n int) {
	for i := 0; i < n; i++ {
		r.push(message.Message{ID: strconv.Itoa(i)})
	}
}

func ids(msgs []message.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestRing(t *testing.T) {
	t.Parallel()

	t.Run("empty buffer", func(t *testing.T) {
		t.Parallel()
		r := newRing(3)
		assert.Nil(t, r.recent(10))
	})

	t.Run("partial fill keeps order", func(t *testing.T) {
		t.Parallel()
		r := newRing(5)
		push(r, 3)
		assert.Equal(t, []string{"0", "1", "2"}, ids(r.recent(10)))
	})

	t.Run("wraparound keeps newest", func(t *testing.T) {
		t.Parallel()
		r := newRing(3)
		push(r, 5)
		assert.Equal(t, []string{"2", "3", "4"}, ids(r.recent(10)))
	})

	t.Run("limit below size returns newest slice", func(t *testing.T) {
		t.Parallel()
		r := newRing(5)
		push(r, 5)
		assert.Equal(t, []string{"3", "4"}, ids(r.recent(2)))
	})

	t.Run("non-positive limit yields nothing", func(t *testing.T) {
		t.Parallel()
		r := newRing(3)
		push(r, 3)
		assert.Nil(t, r.recent(0))
		assert.Nil(t, r.recent(-1))
	})

	t.Run("non-positive capacity falls back to default", func(t *testing.T) {
		t.Parallel()
		r := newRing(0)
		require.Len(t, r.entries, DefaultHistoryCapacity)
	})
}
