package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
)

var testGrantConfig = GrantConfig{
	Secret: []byte("test-secret-key"),
	TTL:    15 * time.Minute,
}

func TestGrant_RoundTrip(t *testing.T) {
	identity := models.Identity{UserID: "42", UserName: "Анна", UserImage: "https://example.com/a.png"}

	token, err := GenerateGrant(testGrantConfig, "org/repo/main/a.md", identity)
	require.NoError(t, err)

	claims, err := ValidateGrant(testGrantConfig, token)
	require.NoError(t, err)

	assert.Equal(t, "org/repo/main/a.md", claims.DocumentKey)
	assert.Equal(t, identity, claims.Identity())
	assert.Equal(t, GrantIssuer, claims.Issuer)
}

func TestGrant_Invalid(t *testing.T) {
	valid, err := GenerateGrant(testGrantConfig, "doc", models.Identity{UserID: "1"})
	require.NoError(t, err)

	expired, err := GenerateGrant(GrantConfig{Secret: testGrantConfig.Secret, TTL: time.Nanosecond}, "doc", models.Identity{})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	noKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: GrantIssuer},
	}).SignedString(testGrantConfig.Secret)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, GrantClaims{
		DocumentKey:      "doc",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}).SignedString(testGrantConfig.Secret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		cfg   GrantConfig
	}{
		{name: "malformed token", token: "invalid.token.here", cfg: testGrantConfig},
		{name: "empty token", token: "", cfg: testGrantConfig},
		{name: "wrong secret", token: valid, cfg: GrantConfig{Secret: []byte("other")}},
		{name: "expired", token: expired, cfg: testGrantConfig},
		{name: "no document key", token: noKey, cfg: testGrantConfig},
		{name: "foreign issuer", token: foreign, cfg: testGrantConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateGrant(tt.cfg, tt.token)
			assert.ErrorIs(t, err, ErrInvalidGrant)
		})
	}
}

func TestGrantConfig_Enabled(t *testing.T) {
	assert.False(t, GrantConfig{}.Enabled())
	assert.True(t, testGrantConfig.Enabled())
}
