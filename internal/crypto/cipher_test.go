package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key := make([]byte, KeySize)
	_, _ = rand.Read(key)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestNewCipher(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{name: "valid key", keyLen: 32},
		{name: "too short", keyLen: 16, wantErr: true},
		{name: "too long", keyLen: 64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCipher(make([]byte, tt.keyLen))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "encryption key must be 32 bytes")
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCipher_SealOpen(t *testing.T) {
	c := newTestCipher(t)

	testCases := map[string][]byte{
		"ascii":   []byte("Hello, World!"),
		"unicode": []byte("Привет, мир! 🌍"),
		"empty":   {},
		"binary":  make([]byte, 1024),
	}
	_, _ = rand.Read(testCases["binary"])

	for name, plaintext := range testCases {
		t.Run(name, func(t *testing.T) {
			sealed, err := c.Seal(plaintext, []byte("doc"))
			require.NoError(t, err)

			// nonce + ciphertext + auth_tag
			assert.Len(t, sealed, NonceSize+len(plaintext)+16)

			opened, err := c.Open(sealed, []byte("doc"))
			require.NoError(t, err)
			assert.Equal(t, len(plaintext), len(opened))
			if len(plaintext) > 0 {
				assert.Equal(t, plaintext, opened)
			}
		})
	}
}

func TestCipher_OpenFailures(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.Seal([]byte("test message"), []byte("doc"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		cipher *Cipher
		sealed []byte
		ad     []byte
	}{
		{name: "too short", cipher: c, sealed: make([]byte, 5), ad: []byte("doc")},
		{name: "wrong key", cipher: newTestCipher(t), sealed: sealed, ad: []byte("doc")},
		{name: "other document", cipher: c, sealed: sealed, ad: []byte("other")},
		{name: "truncated", cipher: c, sealed: sealed[:len(sealed)-1], ad: []byte("doc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := tt.cipher.Open(tt.sealed, tt.ad)
			require.ErrorIs(t, err, ErrOpenFailed)
			assert.Nil(t, opened)
		})
	}
}

func TestCipher_SealRandomness(t *testing.T) {
	// одинаковые данные шифруются по-разному из-за случайного nonce
	c := newTestCipher(t)

	first, err := c.Seal([]byte("same data"), nil)
	require.NoError(t, err)
	second, err := c.Seal([]byte("same data"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
