package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	token, err := tm.Issue("account-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	accountID, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "account-123", accountID)
}

func TestTokenManager_Malformed(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := tm.Verify(input)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", input)
	}
}

func TestTokenManager_Tampered(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	token, err := tm.Issue("account-123")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = tm.Verify(tampered)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenManager_WrongKey(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)
	other := NewTokenManager("another-secret-32-characters-ok!", 1*time.Hour)

	token, err := other.Issue("account-123")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, -1*time.Minute)

	token, err := tm.Issue("account-123")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
