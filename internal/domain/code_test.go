package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCodeGenerator(t *testing.T) {
	gen, err := NewRoomCodeGenerator()
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		code := string(gen())
		assert.True(t, IsRoomCode(code), "bad code %q", code)
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, RoomID("ABC-DEF-GHJ"), NormalizeRoomCode(" abcdefghj "))
	assert.Equal(t, RoomID("ABC-DEF-GHJ"), NormalizeRoomCode("abc-def-ghj"))
	assert.Equal(t, RoomID("SHORT"), NormalizeRoomCode("short"))
}

func TestErrorCodes(t *testing.T) {
	err := RoomNotFound("ABC-DEF-GHJ")

	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NotErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, CodeRoomNotFound, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeInternal, AsError(errors.New("boom")).Code)
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(" alice ", "")
	require.NoError(t, err)
	assert.Equal(t, UserID("alice"), u.ID)
	assert.Equal(t, "alice", u.DisplayName)

	_, err = NewUser("", "Alice")
	assert.ErrorIs(t, err, ErrValidation)
}
