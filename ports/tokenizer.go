package ports

import "github.com/layer-3/sweeper/core"

// Tokenizer converts between operator identities and bearer tokens.
type Tokenizer interface {
	OperatorToToken(operator *core.Operator) (string, error)
	TokenToOperator(token string) (*core.Operator, error)
}
