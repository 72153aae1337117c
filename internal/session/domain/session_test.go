package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsable(t *testing.T) {
	now := time.Now()
	s := Session{Status: StatusActive, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Usable(now))

	s.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, s.Usable(now), "expired session is not usable")

	s = Session{Status: StatusClosed, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, s.Usable(now), "closed session is not usable")
}

func TestOwnedBy(t *testing.T) {
	owner := "user-1"
	s := Session{UserID: &owner}
	assert.True(t, s.OwnedBy("user-1"))
	assert.False(t, s.OwnedBy("user-2"))

	anonymous := Session{}
	assert.True(t, anonymous.OwnedBy("anyone"))
}

func TestClampTTL(t *testing.T) {
	assert.Equal(t, DefaultTTLMinutes, ClampTTL(0))
	assert.Equal(t, MinTTLMinutes, ClampTTL(5))
	assert.Equal(t, MaxTTLMinutes, ClampTTL(9999))
	assert.Equal(t, 60, ClampTTL(60))
}
