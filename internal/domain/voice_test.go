package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

func TestVoiceStateNormalize(t *testing.T) {
	t.Run("deafened forces muted", func(t *testing.T) {
		for _, muted := range []bool{true, false} {
			got := domain.VoiceState{Muted: muted, Deafened: true}.Normalize()
			assert.True(t, got.Muted)
			assert.True(t, got.Deafened)
		}
	})

	t.Run("undeafened leaves muted alone", func(t *testing.T) {
		got := domain.VoiceState{Muted: true}.Normalize()
		assert.True(t, got.Muted)
		assert.False(t, got.Deafened)

		got = domain.VoiceState{}.Normalize()
		assert.False(t, got.Muted)
	})
}

func TestNewRoom(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		r, err := domain.NewRoom("r1", "Lobby", 0, 0, false)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultMaxUsers, r.MaxUsers)
		assert.Equal(t, domain.DefaultBitrate, r.Bitrate)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := domain.NewRoom("", "x", 2, 64000, false)
		assert.ErrorIs(t, err, domain.ErrRoomIDEmpty)
	})

	t.Run("rejects occupancy out of range", func(t *testing.T) {
		_, err := domain.NewRoom("r1", "x", 100, 64000, false)
		assert.ErrorIs(t, err, domain.ErrBadOccupancy)
		_, err = domain.NewRoom("r1", "x", -1, 64000, false)
		assert.ErrorIs(t, err, domain.ErrBadOccupancy)
	})

	t.Run("rejects unsupported bitrate", func(t *testing.T) {
		_, err := domain.NewRoom("r1", "x", 2, 12345, false)
		assert.ErrorIs(t, err, domain.ErrBadBitrate)
	})

	t.Run("accepts every supported bitrate", func(t *testing.T) {
		for _, b := range domain.Bitrates {
			_, err := domain.NewRoom("r1", "x", 2, b, false)
			assert.NoError(t, err)
		}
	})
}

func TestParseUserID(t *testing.T) {
	_, err := domain.ParseUserID("")
	assert.ErrorIs(t, err, domain.ErrUserIDEmpty)

	long := make([]byte, domain.MaxUserIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = domain.ParseUserID(string(long))
	assert.ErrorIs(t, err, domain.ErrUserIDTooLong)

	uid, err := domain.ParseUserID("u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), uid)
}
