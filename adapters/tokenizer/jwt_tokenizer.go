package tokenizer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
)

const (
	AudienceOperator = "sweeper:operator"
	ScopeOrchestrate = "orchestrate"
)

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey   *ecdsa.PrivateKey
	verifyKey *ecdsa.PublicKey
}

// NewJWTTokenizer creates a tokenizer that can both issue and verify tokens
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, verifyKey: &signKey.PublicKey}
}

// NewJWTVerifier creates a tokenizer that only verifies tokens issued
// elsewhere
func NewJWTVerifier(verifyKey *ecdsa.PublicKey) ports.Tokenizer {
	return &JWTTokenizer{verifyKey: verifyKey}
}

// OperatorToToken converts an Operator to a signed JWT
func (j *JWTTokenizer) OperatorToToken(operator *core.Operator) (string, error) {
	if j.signKey == nil {
		return "", fmt.Errorf("tokenizer has no signing key")
	}

	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.Name,
			ID:        operator.ID,
			ExpiresAt: jwt.NewNumericDate(operator.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(operator.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceOperator},
		},
		Scope: ScopeOrchestrate,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToOperator parses and validates an operator JWT
func (j *JWTTokenizer) TokenToOperator(tokenStr string) (*core.Operator, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.verifyKey, nil
	}, jwt.WithAudience(AudienceOperator), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	if claims.Scope != ScopeOrchestrate {
		return nil, ErrInvalidScope
	}

	operator := &core.Operator{
		ID:        claims.ID,
		Name:      claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		operator.IssuedAt = claims.IssuedAt.Time
	}

	return operator, nil
}
