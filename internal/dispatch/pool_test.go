package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds(identities ...string) []Credential {
	creds := make([]Credential, len(identities))
	for i, id := range identities {
		creds[i] = Credential{Identity: id, Secret: "secret-" + id}
	}
	return creds
}

func TestNewCredentialPoolEmpty(t *testing.T) {
	_, err := NewCredentialPool(nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = NewCredentialPool([]Credential{})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestPoolRoundRobin(t *testing.T) {
	pool, err := NewCredentialPool(testCreds("a", "b", "c"))
	require.NoError(t, err)

	var got []string
	for i := 0; i < 6; i++ {
		c, err := pool.Next()
		require.NoError(t, err)
		got = append(got, c.Identity)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestPoolSkipsDisabled(t *testing.T) {
	pool, err := NewCredentialPool(testCreds("a", "b", "c"))
	require.NoError(t, err)

	pool.Disable(Credential{Identity: "b"})

	var got []string
	for i := 0; i < 4; i++ {
		c, err := pool.Next()
		require.NoError(t, err)
		got = append(got, c.Identity)
	}
	assert.Equal(t, []string{"a", "c", "a", "c"}, got)
	assert.Equal(t, 2, pool.Active())
	assert.Equal(t, 3, pool.Size())
}

func TestPoolExhaustion(t *testing.T) {
	pool, err := NewCredentialPool(testCreds("a", "b"))
	require.NoError(t, err)

	pool.Disable(Credential{Identity: "a"})
	pool.Disable(Credential{Identity: "b"})

	_, err = pool.Next()
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 0, pool.Active())
}

func TestPoolDisableUnknownIdentity(t *testing.T) {
	pool, err := NewCredentialPool(testCreds("a"))
	require.NoError(t, err)

	pool.Disable(Credential{Identity: "nope"})

	c, err := pool.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", c.Identity)
}
