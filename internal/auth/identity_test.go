package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)

	return token
}

func TestIdentityFromSubject(t *testing.T) {
	verifier := NewVerifier(testSigningKey)
	token := signToken(t, testSigningKey, jwt.MapClaims{
		"sub": "cognito-user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	identity, err := verifier.Identity(token)
	require.NoError(t, err)
	assert.Equal(t, "cognito-user-42", identity)
}

func TestIdentityPrefersFederatedGoogleID(t *testing.T) {
	verifier := NewVerifier(testSigningKey)

	t.Run("identities claim as JSON string", func(t *testing.T) {
		token := signToken(t, testSigningKey, jwt.MapClaims{
			"sub":        "cognito-user-42",
			"identities": `[{"providerName":"Google","userId":"108456789012345678901"}]`,
			"exp":        time.Now().Add(time.Hour).Unix(),
		})

		identity, err := verifier.Identity(token)
		require.NoError(t, err)
		assert.Equal(t, "108456789012345678901", identity)
	})

	t.Run("identities claim as array", func(t *testing.T) {
		token := signToken(t, testSigningKey, jwt.MapClaims{
			"sub": "cognito-user-42",
			"identities": []map[string]string{
				{"providerName": "Facebook", "userId": "fb-1"},
				{"providerName": "Google", "userId": "108456789012345678901"},
			},
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		identity, err := verifier.Identity(token)
		require.NoError(t, err)
		assert.Equal(t, "108456789012345678901", identity)
	})
}

func TestIdentityRejectsBadSignature(t *testing.T) {
	verifier := NewVerifier(testSigningKey)
	token := signToken(t, "some-other-key", jwt.MapClaims{
		"sub": "cognito-user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Identity(token)
	require.Error(t, err)
}

func TestIdentityRejectsExpiredToken(t *testing.T) {
	verifier := NewVerifier(testSigningKey)
	token := signToken(t, testSigningKey, jwt.MapClaims{
		"sub": "cognito-user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Identity(token)
	require.Error(t, err)
}

func TestIdentityRejectsTokenWithoutSubject(t *testing.T) {
	verifier := NewVerifier(testSigningKey)
	token := signToken(t, testSigningKey, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Identity(token)
	require.Error(t, err)
}

func TestIdentityUnverifiedMode(t *testing.T) {
	verifier := NewVerifier("")
	token := signToken(t, "whatever-key", jwt.MapClaims{
		"sub": "cognito-user-42",
	})

	identity, err := verifier.Identity(token)
	require.NoError(t, err)
	assert.Equal(t, "cognito-user-42", identity)

	_, err = verifier.Identity("not-a-jwt")
	require.Error(t, err)
}
