package tokenizer

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are the standard claims carried by operator tokens
type OperatorClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}
