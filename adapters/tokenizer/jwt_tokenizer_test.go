package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/sweeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newOperator(ttl time.Duration) *core.Operator {
	now := time.Now().Truncate(time.Second)
	return &core.Operator{
		ID:        uuid.New().String(),
		Name:      "orchestrator",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestOperatorTokenRoundTrip(t *testing.T) {
	key := newKey(t)
	tok := NewJWTTokenizer(key)

	op := newOperator(time.Hour)
	token, err := tok.OperatorToToken(op)
	require.NoError(t, err)

	got, err := NewJWTVerifier(&key.PublicKey).TokenToOperator(token)
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, op.Name, got.Name)
	assert.True(t, op.ExpiresAt.Equal(got.ExpiresAt))
}

func TestOperatorTokenExpired(t *testing.T) {
	tok := NewJWTTokenizer(newKey(t))

	token, err := tok.OperatorToToken(newOperator(-time.Minute))
	require.NoError(t, err)

	_, err = tok.TokenToOperator(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestOperatorTokenWrongKey(t *testing.T) {
	token, err := NewJWTTokenizer(newKey(t)).OperatorToToken(newOperator(time.Hour))
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newKey(t)).TokenToOperator(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestOperatorTokenWrongAudience(t *testing.T) {
	key := newKey(t)
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "orchestrator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{"session:access"},
		},
		Scope: ScopeOrchestrate,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(key).TokenToOperator(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
}

func TestOperatorTokenWrongScope(t *testing.T) {
	key := newKey(t)
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "orchestrator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{AudienceOperator},
		},
		Scope: "read",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(key).TokenToOperator(token)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestVerifierCannotIssue(t *testing.T) {
	key := newKey(t)
	_, err := NewJWTVerifier(&key.PublicKey).OperatorToToken(newOperator(time.Hour))
	assert.Error(t, err)
}
