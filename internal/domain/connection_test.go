package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalIDSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"alice", "bob"},
		{"zzz", "aaa"},
		{"9f3c", "1b7e"},
	}
	for _, p := range pairs {
		assert.Equal(t, CanonicalID(p[0], p[1]), CanonicalID(p[1], p[0]))
	}
}

func TestCanonicalIDSortedJoin(t *testing.T) {
	assert.Equal(t, "u1_u2", CanonicalID("u1", "u2"))
	assert.Equal(t, "u1_u2", CanonicalID("u2", "u1"))
	assert.Equal(t, "aaa_zzz", CanonicalID("zzz", "aaa"))
}

func TestConnectionPeerOf(t *testing.T) {
	c := &Connection{UserA: "u1", UserB: "u2"}

	assert.Equal(t, "u2", c.PeerOf("u1"))
	assert.Equal(t, "u1", c.PeerOf("u2"))
	assert.Equal(t, "", c.PeerOf("u3"))

	assert.True(t, c.Involves("u1"))
	assert.True(t, c.Involves("u2"))
	assert.False(t, c.Involves("u3"))
}
