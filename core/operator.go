package core

import "time"

// Operator is an authenticated orchestrator allowed to create accounts and
// record payments.
type Operator struct {
	ID        string    // Unique token identifier
	Name      string    // Operator name, carried as the token subject
	IssuedAt  time.Time // When the token was issued
	ExpiresAt time.Time // When the token expires
}
