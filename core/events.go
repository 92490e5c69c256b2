package core

import "github.com/shopspring/decimal"

const (
	// SweepCompletedTopic carries SweepCompleted records.
	SweepCompletedTopic = "sweeper.sweep_completed"

	// PaymentRecordedTopic carries PaymentRecorded records.
	PaymentRecordedTopic = "sweeper.payment_recorded"
)

// SweepCompleted is emitted once per successful sweep. Nonce is the value the
// authorizing signature was built against.
type SweepCompleted struct {
	Account     Address                     `json:"account"`
	Destination Address                     `json:"destination"`
	Nonce       uint64                      `json:"nonce"`
	Balances    map[Address]decimal.Decimal `json:"balances"`
	Height      uint64                      `json:"height"`
	Timestamp   uint64                      `json:"timestamp"`
}

// PaymentRecorded is emitted for every accepted record_payment call.
type PaymentRecorded struct {
	Account      Address         `json:"account"`
	Asset        Address         `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentCount int             `json:"payment_count"`
	Height       uint64          `json:"height"`
}
