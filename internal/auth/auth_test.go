package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 8*time.Hour)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, expires, err := issuer.Issue(7)
	require.NoError(t, err)
	assert.Equal(t, now.Add(8*time.Hour), expires)

	claims, err := issuer.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.AdminID)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, _, err := issuer.Issue(1)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	other := NewTokenIssuer("a-completely-different-secret!!", time.Hour)
	forged, _, err := other.Issue(1)
	require.NoError(t, err)
	_, err = issuer.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		AdminID:          1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{AdminID: 1}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Parse(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken, "missing exp")

	_, err = issuer.Parse("Bearer ")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "s3cret-pass"), ErrInvalidCredentials)
}
