package hub_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/core/connection"
	"github.com/relayhq/chathub/core/hub"
	"github.com/relayhq/chathub/core/message"
	"github.com/relayhq/chathub/core/presence"
	"github.com/relayhq/chathub/core/room"
	"github.com/relayhq/chathub/pkg/ratelimiter"
)

// ratelimiterConfig returns a bucket generous enough that throttling
// never interferes with tests exercising other behavior.
func ratelimiterConfig(n float64) ratelimiter.Config {
	return ratelimiter.Config{Rate: n, Burst: n}
}

// memStore is an in-memory Store for hub tests.
type memStore struct {
	mu        sync.Mutex
	now       func() time.Time
	roomMsgs  []message.Message
	dms       []message.Message
	reactions map[string]map[string]map[int64]struct{} // message id -> emoji -> users
	users     map[int64]bool
	failing   bool
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:       now,
		reactions: make(map[string]map[string]map[int64]struct{}),
		users:     make(map[int64]bool),
	}
}

func (s *memStore) fail(on bool) {
	s.mu.Lock()
	s.failing = on
	s.mu.Unlock()
}

func (s *memStore) InsertRoomMessage(_ context.Context, roomID string, authorID int64, authorName, content string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return message.Message{}, fmt.Errorf("%w: connection refused", hub.ErrStorageUnavailable)
	}
	msg := message.Message{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Room:       roomID,
		Content:    content,
		Kind:       message.KindText,
		CreatedAt:  s.now(),
	}
	s.roomMsgs = append(s.roomMsgs, msg)
	return msg, nil
}

func (s *memStore) InsertDirectMessage(_ context.Context, fromID int64, fromName string, toID int64, content string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return message.Message{}, fmt.Errorf("%w: connection refused", hub.ErrStorageUnavailable)
	}
	msg := message.Message{
		ID:         uuid.NewString(),
		AuthorID:   fromID,
		AuthorName: fromName,
		Recipient:  toID,
		Content:    content,
		Kind:       message.KindText,
		CreatedAt:  s.now(),
	}
	s.dms = append(s.dms, msg)
	return msg, nil
}

func (s *memStore) FetchRoomHistory(_ context.Context, roomID string, limit int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, fmt.Errorf("%w: connection refused", hub.ErrStorageUnavailable)
	}
	var out []message.Message
	for _, m := range s.roomMsgs {
		if m.Room == roomID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) FetchDMHistory(_ context.Context, a, b int64, limit int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []message.Message
	for _, m := range s.dms {
		if (m.AuthorID == a && m.Recipient == b) || (m.AuthorID == b && m.Recipient == a) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return false, fmt.Errorf("%w: connection refused", hub.ErrStorageUnavailable)
	}
	return s.users[userID], nil
}

func (s *memStore) RoomExists(_ context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.roomMsgs {
		if m.Room == roomID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) AddReaction(_ context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactions[messageID] == nil {
		s.reactions[messageID] = make(map[string]map[int64]struct{})
	}
	if s.reactions[messageID][emoji] == nil {
		s.reactions[messageID][emoji] = make(map[int64]struct{})
	}
	s.reactions[messageID][emoji][userID] = struct{}{}
	return message.Reaction{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
		Count:     len(s.reactions[messageID][emoji]),
	}, nil
}

func (s *memStore) RemoveReaction(_ context.Context, messageID string, userID int64, emoji string) (message.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users := s.reactions[messageID][emoji]; users != nil {
		delete(users, userID)
	}
	return message.Reaction{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
		Count:     len(s.reactions[messageID][emoji]),
	}, nil
}

func (s *memStore) roomMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roomMsgs)
}

type fixture struct {
	hub   *hub.Hub
	store *memStore
	clock *clock.Mock
}

func newFixture(t *testing.T, cfg hub.Config) *fixture {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore(mock.Now)
	h := hub.New(store, cfg, hub.WithClock(mock))
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return &fixture{hub: h, store: store, clock: mock}
}

func (f *fixture) connect(t *testing.T, userID int64, name string) *connection.Connection {
	t.Helper()
	conn, err := f.hub.RegisterConnection(
		auth.Claims{UserID: userID, Username: name},
		connection.Metadata{RemoteAddr: "127.0.0.1"},
	)
	require.NoError(t, err)
	return conn
}

// events drains and decodes everything currently queued on conn.
func events(t *testing.T, conn *connection.Connection) []hub.Envelope {
	t.Helper()
	var out []hub.Envelope
	for {
		select {
		case payload, ok := <-conn.Outbound():
			if !ok {
				return out
			}
			var env hub.Envelope
			require.NoError(t, json.Unmarshal(payload, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsOfType(envs []hub.Envelope, eventType string) []hub.Envelope {
	var out []hub.Envelope
	for _, e := range envs {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestHub_SendMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("end to end room message", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")

		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
		events(t, a)
		events(t, b)

		require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "general", "hi"))

		got := eventsOfType(events(t, b), hub.EventMessage)
		require.Len(t, got, 1)
		var msg message.Message
		require.NoError(t, json.Unmarshal(got[0].Data, &msg))
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, "general", msg.Room)
		assert.EqualValues(t, 1, msg.AuthorID)
		assert.NotEmpty(t, msg.ID)

		// Sender receives their own message as the success signal.
		assert.Len(t, eventsOfType(events(t, a), hub.EventMessage), 1)

		recent := f.hub.RecentMessages("general", 10)
		require.Len(t, recent, 1)
		assert.Equal(t, "hi", recent[0].Content)
	})

	t.Run("rate limited message is not persisted or broadcast", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
		events(t, a)
		events(t, b)

		for i := 0; i < 10; i++ {
			require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "general", fmt.Sprintf("m%d", i)))
		}
		err := f.hub.SendMessage(ctx, a.ID(), "general", "one too many")
		require.ErrorIs(t, err, hub.ErrRateLimited)

		assert.Equal(t, 10, f.store.roomMessageCount())
		assert.Len(t, eventsOfType(events(t, b), hub.EventMessage), 10)
	})

	t.Run("non-member is rejected without state change", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		err := f.hub.SendMessage(ctx, a.ID(), "general", "hi")
		require.ErrorIs(t, err, hub.ErrNotAMember)
		assert.Zero(t, f.store.roomMessageCount())
	})

	t.Run("storage failure means nothing is broadcast", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
		events(t, a)
		events(t, b)

		f.store.fail(true)
		err := f.hub.SendMessage(ctx, a.ID(), "general", "hi")
		require.ErrorIs(t, err, hub.ErrStorageUnavailable)

		assert.Empty(t, eventsOfType(events(t, b), hub.EventMessage))
		assert.Empty(t, f.hub.RecentMessages("general", 10))
	})

	t.Run("slow mode rejects rapid second message", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		f.hub.Rooms().Create("slow", room.Settings{SlowMode: 30 * time.Second})
		a := f.connect(t, 1, "alice")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "slow"))

		require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "slow", "first"))
		require.ErrorIs(t, f.hub.SendMessage(ctx, a.ID(), "slow", "second"), hub.ErrSlowMode)

		f.clock.Add(30 * time.Second)
		require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "slow", "third"))
		assert.Equal(t, 2, f.store.roomMessageCount())
	})

	t.Run("per-room order is preserved for each member", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{Limiter: ratelimiterConfig(1000)})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
		events(t, a)
		events(t, b)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = f.hub.SendMessage(ctx, a.ID(), "general", fmt.Sprintf("m%d", i))
			}(i)
		}
		wg.Wait()

		got := eventsOfType(events(t, b), hub.EventMessage)
		require.Len(t, got, 20)
		recent := f.hub.RecentMessages("general", 20)
		require.Len(t, recent, 20)
		for i, env := range got {
			var msg message.Message
			require.NoError(t, json.Unmarshal(env.Data, &msg))
			assert.Equal(t, recent[i].ID, msg.ID, "delivery order matches acceptance order")
		}
	})
}

func TestHub_JoinLeave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("joiner gets confirmation and recent history", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "general", "before"))

		b := f.connect(t, 2, "bob")
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))

		envs := events(t, b)
		require.Len(t, eventsOfType(envs, hub.EventActionConfirmed), 1)
		history := eventsOfType(envs, hub.EventRoomHistory)
		require.Len(t, history, 1)
		var payload hub.RoomHistoryEvent
		require.NoError(t, json.Unmarshal(history[0].Data, &payload))
		require.Len(t, payload.Messages, 1)
		assert.Equal(t, "before", payload.Messages[0].Content)

		// Existing member sees the join.
		joined := eventsOfType(events(t, a), hub.EventRoomJoined)
		require.NotEmpty(t, joined)
	})

	t.Run("join full room fails", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		f.hub.Rooms().Create("tiny", room.Settings{MaxMembers: 1})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")

		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "tiny"))
		require.ErrorIs(t, f.hub.JoinRoom(ctx, b.ID(), "tiny"), room.ErrRoomFull)
	})

	t.Run("leave announces to remaining members", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		b := f.connect(t, 2, "bob")
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
		events(t, a)

		require.NoError(t, f.hub.LeaveRoom(ctx, b.ID(), "general"))

		left := eventsOfType(events(t, a), hub.EventRoomLeft)
		require.Len(t, left, 1)
		var payload hub.RoomEvent
		require.NoError(t, json.Unmarshal(left[0].Data, &payload))
		assert.EqualValues(t, 2, payload.User)

		require.ErrorIs(t, f.hub.LeaveRoom(ctx, b.ID(), "general"), hub.ErrNotAMember)
	})

	t.Run("presence follows membership", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		assert.Equal(t, presence.StatusInvisible, f.hub.Presence().StatusOf(1))
		require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
		assert.Equal(t, presence.StatusOnline, f.hub.Presence().StatusOf(1))
		require.NoError(t, f.hub.LeaveRoom(ctx, a.ID(), "general"))
		assert.Equal(t, presence.StatusInvisible, f.hub.Presence().StatusOf(1))
	})
}

func TestHub_Disconnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, hub.Config{})
	a := f.connect(t, 1, "alice")
	b := f.connect(t, 2, "bob")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
	require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
	events(t, b)

	f.hub.Disconnect(ctx, a.ID())

	assert.Equal(t, 1, f.hub.Connections().Len())
	assert.False(t, f.hub.Rooms().IsMember("general", a.ID()))
	assert.Equal(t, presence.StatusInvisible, f.hub.Presence().StatusOf(1))

	left := eventsOfType(events(t, b), hub.EventRoomLeft)
	require.Len(t, left, 1)

	// Idempotent.
	f.hub.Disconnect(ctx, a.ID())
	assert.Equal(t, 1, f.hub.Connections().Len())
}

func TestHub_Direct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("delivered to every connection of the target", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		f.store.users[2] = true
		a := f.connect(t, 1, "alice")
		b1 := f.connect(t, 2, "bob")
		b2 := f.connect(t, 2, "bob")

		require.NoError(t, f.hub.SendDirect(ctx, a.ID(), 2, "psst"))

		for _, conn := range []*connection.Connection{b1, b2} {
			dms := eventsOfType(events(t, conn), hub.EventDM)
			require.Len(t, dms, 1)
			var msg message.Message
			require.NoError(t, json.Unmarshal(dms[0].Data, &msg))
			assert.Equal(t, "psst", msg.Content)
			assert.EqualValues(t, 1, msg.AuthorID)
		}
		assert.Len(t, eventsOfType(events(t, a), hub.EventActionConfirmed), 1)
	})

	t.Run("offline target is stored not errored", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		f.store.users[2] = true
		a := f.connect(t, 1, "alice")

		require.NoError(t, f.hub.SendDirect(ctx, a.ID(), 2, "psst"))

		msgs, err := f.store.FetchDMHistory(ctx, 1, 2, 10)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")
		require.ErrorIs(t, f.hub.SendDirect(ctx, a.ID(), 99, "psst"), hub.ErrUserNotFound)
	})
}

func TestHub_History(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, hub.Config{Limiter: ratelimiterConfig(1000)})
	a := f.connect(t, 1, "alice")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
	for i := 0; i < 5; i++ {
		require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "general", fmt.Sprintf("m%d", i)))
	}
	events(t, a)

	require.NoError(t, f.hub.RoomHistory(ctx, a.ID(), "general", 3))
	history := eventsOfType(events(t, a), hub.EventRoomHistory)
	require.Len(t, history, 1)
	var payload hub.RoomHistoryEvent
	require.NoError(t, json.Unmarshal(history[0].Data, &payload))
	assert.Len(t, payload.Messages, 3)
	assert.Equal(t, "m4", payload.Messages[2].Content)

	b := f.connect(t, 2, "bob")
	require.ErrorIs(t, f.hub.RoomHistory(ctx, b.ID(), "general", 3), hub.ErrNotAMember)
}

func TestHub_TypingAndPresence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, hub.Config{})
	a := f.connect(t, 1, "alice")
	b := f.connect(t, 2, "bob")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
	require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
	events(t, b)

	require.NoError(t, f.hub.StartTyping(ctx, a.ID(), "general"))
	assert.Equal(t, []int64{1}, f.hub.Presence().TypingUsers("general"))
	require.Len(t, eventsOfType(events(t, b), hub.EventTypingStart), 1)

	require.NoError(t, f.hub.StopTyping(ctx, a.ID(), "general"))
	assert.Empty(t, f.hub.Presence().TypingUsers("general"))
	require.Len(t, eventsOfType(events(t, b), hub.EventTypingStop), 1)

	require.NoError(t, f.hub.UpdatePresence(ctx, a.ID(), "do_not_disturb", "focus time"))
	updates := eventsOfType(events(t, b), hub.EventPresenceUpdate)
	require.Len(t, updates, 1)
	var update hub.PresenceUpdateEvent
	require.NoError(t, json.Unmarshal(updates[0].Data, &update))
	assert.Equal(t, "do_not_disturb", update.Status)

	require.ErrorIs(t, f.hub.UpdatePresence(ctx, a.ID(), "away", ""), hub.ErrInvalidCommand)
	require.ErrorIs(t, f.hub.StartTyping(ctx, a.ID(), "other"), hub.ErrNotAMember)
}

func TestHub_Reactions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, hub.Config{})
	a := f.connect(t, 1, "alice")
	b := f.connect(t, 2, "bob")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))
	require.NoError(t, f.hub.JoinRoom(ctx, b.ID(), "general"))
	require.NoError(t, f.hub.SendMessage(ctx, a.ID(), "general", "react to me"))

	recent := f.hub.RecentMessages("general", 1)
	require.Len(t, recent, 1)
	msgID := recent[0].ID
	events(t, a)
	events(t, b)

	require.NoError(t, f.hub.AddReaction(ctx, b.ID(), "general", msgID, "👍"))
	added := eventsOfType(events(t, a), hub.EventReactionAdded)
	require.Len(t, added, 1)
	var reaction message.Reaction
	require.NoError(t, json.Unmarshal(added[0].Data, &reaction))
	assert.Equal(t, 1, reaction.Count)
	assert.Equal(t, "general", reaction.Room)

	// Removal is idempotent: removing twice never goes negative.
	require.NoError(t, f.hub.RemoveReaction(ctx, b.ID(), "general", msgID, "👍"))
	require.NoError(t, f.hub.RemoveReaction(ctx, b.ID(), "general", msgID, "👍"))
	removed := eventsOfType(events(t, a), hub.EventReactionRemoved)
	require.Len(t, removed, 2)
	require.NoError(t, json.Unmarshal(removed[1].Data, &reaction))
	assert.Zero(t, reaction.Count)
}

func TestHub_HandleCommand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("dispatches and confirms", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		frame := []byte(`{"type":"join_room","data":{"room":"general"}}`)
		require.NoError(t, f.hub.HandleCommand(ctx, a.ID(), frame))
		assert.True(t, f.hub.Rooms().IsMember("general", a.ID()))
	})

	t.Run("rejection yields exactly one error event", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		frame := []byte(`{"type":"room_message","data":{"room":"general","content":"hi"}}`)
		err := f.hub.HandleCommand(ctx, a.ID(), frame)
		require.ErrorIs(t, err, hub.ErrNotAMember)

		errs := eventsOfType(events(t, a), hub.EventError)
		require.Len(t, errs, 1)
		var ev hub.ErrorEvent
		require.NoError(t, json.Unmarshal(errs[0].Data, &ev))
		assert.Equal(t, hub.CodeNotAMember, ev.Code)
	})

	t.Run("malformed frame", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		err := f.hub.HandleCommand(ctx, a.ID(), []byte(`{not json`))
		require.ErrorIs(t, err, hub.ErrInvalidCommand)

		errs := eventsOfType(events(t, a), hub.EventError)
		require.Len(t, errs, 1)
		var ev hub.ErrorEvent
		require.NoError(t, json.Unmarshal(errs[0].Data, &ev))
		assert.Equal(t, hub.CodeInvalidCommand, ev.Code)
	})

	t.Run("unknown command type", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, hub.Config{})
		a := f.connect(t, 1, "alice")

		err := f.hub.HandleCommand(ctx, a.ID(), []byte(`{"type":"fly","data":{}}`))
		require.ErrorIs(t, err, hub.ErrInvalidCommand)
	})
}

func TestHub_Shutdown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, hub.Config{})
	a := f.connect(t, 1, "alice")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))

	require.NoError(t, f.hub.Shutdown(ctx))

	_, err := f.hub.RegisterConnection(auth.Claims{UserID: 2, Username: "bob"}, connection.Metadata{})
	require.ErrorIs(t, err, hub.ErrShuttingDown)
	require.ErrorIs(t, f.hub.SendMessage(ctx, a.ID(), "general", "hi"), hub.ErrShuttingDown)

	// Outbound channels are closed.
	_, open := <-a.Outbound()
	for open {
		_, open = <-a.Outbound()
	}

	require.NoError(t, f.hub.Shutdown(ctx), "idempotent")
}

func TestHub_IdleSweep(t *testing.T) {
	t.Parallel()

	f := newFixture(t, hub.Config{
		Connection:        connection.Config{IdleTimeout: time.Minute},
		IdleSweepInterval: 30 * time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.hub.Run(ctx)() }()

	a := f.connect(t, 1, "alice")
	require.NoError(t, f.hub.JoinRoom(ctx, a.ID(), "general"))

	// Let the runner park on the ticker before advancing time.
	time.Sleep(10 * time.Millisecond)
	f.clock.Add(2 * time.Minute)
	assert.Eventually(t, func() bool {
		return f.hub.Connections().Len() == 0
	}, time.Second, 5*time.Millisecond, "idle connection is swept")

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
