package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantTimeEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "secrets"))
	assert.False(t, ConstantTimeEqual("a", "b"))
	assert.True(t, ConstantTimeEqual("", ""))
}

func TestCanonicalizeResourceURI(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"HTTPS://Example.COM:443/foo/", "https://example.com/foo", false},
		{"https://example.com/", "https://example.com/", false},
		{"http://example.com/foo", "", true},
		{"http://localhost:8080/foo/", "http://localhost:8080/foo", false},
	}
	for _, c := range cases {
		got, err := CanonicalizeResourceURI(c.in)
		if c.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestLocalLimiter_AllowsBurstThenBlocks(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(1, 2)
	ctx := context.Background()

	ok1, _ := l.Allow(ctx, "key")
	ok2, _ := l.Allow(ctx, "key")
	ok3, _ := l.Allow(ctx, "key")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
}

func TestSessionManager_CreateValidateRotate(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(SessionConfig{
		IdleTimeout:     time.Minute,
		AbsoluteTimeout: time.Hour,
		MaxPerIP:        2,
		Header:          "Mcp-Session-Id",
	})

	id, err := m.Create("1.2.3.4")
	require.NoError(t, err)

	require.NoError(t, m.Validate(id, "1.2.3.4"))
	assert.Error(t, m.Validate(id, "5.6.7.8"))

	id2, err := m.Create("9.9.9.9")
	require.NoError(t, err)
	newID, err := m.Rotate(id2)
	require.NoError(t, err)
	assert.NotEqual(t, id2, newID)
	require.NoError(t, m.Validate(newID, "9.9.9.9"))
}

func TestSessionManager_MaxPerIPEnforced(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(SessionConfig{MaxPerIP: 1, IdleTimeout: time.Minute, AbsoluteTimeout: time.Hour})
	_, err := m.Create("1.1.1.1")
	require.NoError(t, err)
	_, err = m.Create("1.1.1.1")
	assert.Error(t, err)
}
