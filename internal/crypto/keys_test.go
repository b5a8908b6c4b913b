package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStorageKey(t *testing.T) {
	key, err := DeriveStorageKey("server secret")
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	again, err := DeriveStorageKey("server secret")
	require.NoError(t, err)
	assert.Equal(t, key, again, "same secret gives same key")

	other, err := DeriveStorageKey("another secret")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = DeriveStorageKey("")
	assert.Error(t, err)
}
