package presence_test

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/relayhq/chathub/core/presence"
)

func TestTracker_Status(t *testing.T) {
	t.Parallel()

	t.Run("unknown user is invisible", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		assert.Equal(t, presence.StatusInvisible, tracker.StatusOf(42))
	})

	t.Run("first room join promotes to online", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.RoomJoined(1)
		assert.Equal(t, presence.StatusOnline, tracker.StatusOf(1))
	})

	t.Run("leaving last room returns to invisible", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.RoomJoined(1)
		tracker.RoomJoined(1)
		tracker.RoomLeft(1)
		assert.Equal(t, presence.StatusOnline, tracker.StatusOf(1), "still in one room")

		tracker.RoomLeft(1)
		assert.Equal(t, presence.StatusInvisible, tracker.StatusOf(1))
	})

	t.Run("manual status survives room churn", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.RoomJoined(1)
		assert.True(t, tracker.SetStatus(1, presence.StatusDoNotDisturb))

		tracker.RoomJoined(1)
		tracker.RoomLeft(1)
		assert.Equal(t, presence.StatusDoNotDisturb, tracker.StatusOf(1))

		// Last room left clears the pin.
		tracker.RoomLeft(1)
		assert.Equal(t, presence.StatusInvisible, tracker.StatusOf(1))
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		assert.False(t, tracker.SetStatus(1, presence.Status("away")))
	})

	t.Run("forget drops state", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.RoomJoined(1)
		tracker.Forget(1)
		assert.Equal(t, presence.StatusInvisible, tracker.StatusOf(1))
	})
}

func TestTracker_ConcurrentUsers(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	tracker := presence.NewTracker(
		presence.Config{InactivityThreshold: 10 * time.Minute},
		presence.WithClock(mock),
	)

	const users = 64
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			tracker.RoomJoined(userID)
			for it94 := 0; it94 < 50; it94++ {
				tracker.Touch(userID)
				_ = tracker.StatusOf(userID)
			}
			if userID%2 == 0 {
				tracker.SetStatus(userID, presence.StatusDoNotDisturb)
			}
		}(int64(u + 1))
	}

	// Sweeps run alongside the per-user churn.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for it108 := 0; it108 < 10; it108++ {
			tracker.CleanupInactive()
		}
	}()
	wg.Wait()

	for u := 0; u < users; u++ {
		userID := int64(u + 1)
		want := presence.StatusOnline
		if userID%2 == 0 {
			want = presence.StatusDoNotDisturb
		}
		assert.Equal(t, want, tracker.StatusOf(userID))
	}
}

func TestTracker_CleanupInactive(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	tracker := presence.NewTracker(
		presence.Config{InactivityThreshold: 10 * time.Minute},
		presence.WithClock(mock),
	)

	tracker.RoomJoined(1)
	tracker.RoomJoined(2)
	tracker.SetStatus(3, presence.StatusDoNotDisturb)

	mock.Add(5 * time.Minute)
	tracker.Touch(2)

	mock.Add(5 * time.Minute)
	demoted := tracker.CleanupInactive()

	assert.Equal(t, 1, demoted)
	assert.Equal(t, presence.StatusIdle, tracker.StatusOf(1))
	assert.Equal(t, presence.StatusOnline, tracker.StatusOf(2), "recent activity keeps user online")
	assert.Equal(t, presence.StatusDoNotDisturb, tracker.StatusOf(3), "manual pin is never demoted")

	// Activity after demotion restores online.
	tracker.Touch(1)
	assert.Equal(t, presence.StatusOnline, tracker.StatusOf(1))
}

func TestTracker_Typing(t *testing.T) {
	t.Parallel()

	t.Run("indicator visible within window", func(t *testing.T) {
		t.Parallel()

		mock := clock.NewMock()
		tracker := presence.NewTracker(
			presence.Config{TypingWindow: 5 * time.Second},
			presence.WithClock(mock),
		)

		tracker.StartTyping("general", 1)
		tracker.StartTyping("general", 2)
		assert.ElementsMatch(t, []int64{1, 2}, tracker.TypingUsers("general"))
	})

	t.Run("indicator expires after window", func(t *testing.T) {
		t.Parallel()

		mock := clock.NewMock()
		tracker := presence.NewTracker(
			presence.Config{TypingWindow: 5 * time.Second},
			presence.WithClock(mock),
		)

		tracker.StartTyping("general", 1)
		mock.Add(6 * time.Second)
		assert.Empty(t, tracker.TypingUsers("general"))
	})

	t.Run("renewal extends the window", func(t *testing.T) {
		t.Parallel()

		mock := clock.NewMock()
		tracker := presence.NewTracker(
			presence.Config{TypingWindow: 5 * time.Second},
			presence.WithClock(mock),
		)

		tracker.StartTyping("general", 1)
		mock.Add(4 * time.Second)
		tracker.StartTyping("general", 1)
		mock.Add(4 * time.Second)
		assert.Equal(t, []int64{1}, tracker.TypingUsers("general"))
	})

	t.Run("stop clears immediately", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.StartTyping("general", 1)
		tracker.StopTyping("general", 1)
		assert.Empty(t, tracker.TypingUsers("general"))
	})

	t.Run("rooms are independent", func(t *testing.T) {
		t.Parallel()

		tracker := presence.NewTracker(presence.Config{})
		tracker.StartTyping("general", 1)
		assert.Empty(t, tracker.TypingUsers("random"))
	})
}
