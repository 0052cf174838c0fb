package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devin-clone/core-backend/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func TestIssueAndParseTokens(t *testing.T) {
	cfg := testAuthConfig()
	userID := uuid.New()

	pair, err := IssueTokens(cfg, userID)
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	gotID, err := ParseToken(cfg.Secret, pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)

	gotID, err = ParseToken(cfg.Secret, pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
}

func TestParseTokenRejectsWrongType(t *testing.T) {
	cfg := testAuthConfig()

	pair, err := IssueTokens(cfg, uuid.New())
	require.NoError(t, err)

	// A refresh token must not pass as an access token, and vice versa.
	_, err = ParseToken(cfg.Secret, pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(cfg.Secret, pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	pair, err := IssueTokens(testAuthConfig(), uuid.New())
	require.NoError(t, err)

	_, err = ParseToken("other-secret", pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.AccessTTL = -time.Minute

	pair, err := IssueTokens(cfg, uuid.New())
	require.NoError(t, err)

	_, err = ParseToken(cfg.Secret, pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("test-secret", "not-a-jwt", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword("s3cret-pass", hash))
	assert.False(t, VerifyPassword("wrong-pass", hash))
}
