package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRoomRateLimiter(3, 10*time.Second, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("alice"), "attempt %d", i)
	}
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"), "limits are per user")

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow("alice"))
}

func TestRoomRateLimiterDisabled(t *testing.T) {
	rl := NewRoomRateLimiter(0, time.Second, nil)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("alice"))
	}
}

func TestIdentityPayload(t *testing.T) {
	u, err := identityPayload{}.user()
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = identityPayload{UserID: " alice ", DisplayName: " Alice "}.user()
	assert.NoError(t, err)
	assert.Equal(t, "alice", string(u.ID))
	assert.Equal(t, "Alice", u.DisplayName)

	_, err = identityPayload{DisplayName: string(make([]rune, 60))}.user()
	assert.Error(t, err)
}
