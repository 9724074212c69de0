package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIssuesKeyOnce(t *testing.T) {
	m := NewManager(NewMemoryStore())

	user, rawKey, key, err := m.Register(context.Background(), "Alice", "alice@example.com")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(user.ID, "usr_"))
	assert.True(t, strings.HasPrefix(rawKey, "sk_"))
	assert.True(t, strings.HasPrefix(key.ID, "ak_"))
	assert.Equal(t, user.ID, key.UserID)
	// The raw key is never persisted, only its hash.
	assert.NotContains(t, key.Hash, rawKey)
	assert.Equal(t, hashKey(rawKey), key.Hash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	m := NewManager(NewMemoryStore())

	_, _, _, err := m.Register(context.Background(), "Alice", "alice@example.com")
	require.NoError(t, err)

	_, _, _, err = m.Register(context.Background(), "Alice again", "Alice@Example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestValidateKey(t *testing.T) {
	m := NewManager(NewMemoryStore())
	user, rawKey, _, err := m.Register(context.Background(), "Alice", "")
	require.NoError(t, err)

	key, err := m.ValidateKey(context.Background(), rawKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, key.UserID)

	// Bearer prefix is tolerated.
	key, err = m.ValidateKey(context.Background(), "Bearer "+rawKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, key.UserID)
}

func TestValidateKeyRejections(t *testing.T) {
	m := NewManager(NewMemoryStore())

	_, err := m.ValidateKey(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = m.ValidateKey(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = m.ValidateKey(context.Background(), "sk_deadbeef")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestRevokeKey(t *testing.T) {
	m := NewManager(NewMemoryStore())
	user, rawKey, key, err := m.Register(context.Background(), "Alice", "")
	require.NoError(t, err)

	require.NoError(t, m.RevokeKey(context.Background(), key.ID, user.ID))

	_, err = m.ValidateKey(context.Background(), rawKey)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestRevokeKeyWrongUser(t *testing.T) {
	m := NewManager(NewMemoryStore())
	_, _, key, err := m.Register(context.Background(), "Alice", "")
	require.NoError(t, err)

	err = m.RevokeKey(context.Background(), key.ID, "usr_other")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestGenerateAdditionalKey(t *testing.T) {
	m := NewManager(NewMemoryStore())
	user, firstKey, _, err := m.Register(context.Background(), "Alice", "")
	require.NoError(t, err)

	secondKey, _, err := m.GenerateKey(context.Background(), user.ID, "CI key")
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, secondKey)

	keys, err := m.ListKeys(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
