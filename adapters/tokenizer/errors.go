package tokenizer

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidScope = errors.New("token scope does not allow this operation")
)
