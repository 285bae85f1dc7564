package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/tia/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	now := time.Now().Truncate(time.Second)
	session := &core.Session{
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	got, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
}

func TestJWTTokenizer_Rejects(t *testing.T) {
	key := newKey(t)
	tk := NewJWTTokenizer(key)
	now := time.Now()

	expired, err := tk.SessionToToken(&core.Session{ID: "s", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	foreign, err := NewJWTTokenizer(newKey(t)).SessionToToken(&core.Session{ID: "s", IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodES256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "s",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			Audience:  jwt.ClaimStrings{"session:access"},
		},
	}).SignedString(key)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not-a-jwt",
		"expired":        expired,
		"foreign key":    foreign,
		"wrong audience": wrongAudience,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.TokenToSession(token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}
