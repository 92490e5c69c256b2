// Package chain derives ledger height and close time from a wall clock.
package chain

import (
	"time"

	"github.com/layer-3/sweeper/ports"
	"github.com/lightningnetwork/lnd/clock"
)

// DefaultCloseInterval matches the ledger close cadence the protocol was
// designed against.
const DefaultCloseInterval = 5 * time.Second

// ClockChain closes one ledger every interval starting at genesis. The
// timestamp reported for a ledger is its close time, so it stays constant for
// the whole interval.
type ClockChain struct {
	clock      clock.Clock
	genesis    time.Time
	interval   time.Duration
	baseHeight uint64
}

// NewClockChain creates a chain whose ledger baseHeight closed at genesis.
func NewClockChain(clk clock.Clock, genesis time.Time, interval time.Duration,
	baseHeight uint64) ports.Chain {

	if interval <= 0 {
		interval = DefaultCloseInterval
	}

	return &ClockChain{
		clock:      clk,
		genesis:    genesis,
		interval:   interval,
		baseHeight: baseHeight,
	}
}

// closed returns the number of ledgers closed since genesis.
func (c *ClockChain) closed() uint64 {
	elapsed := c.clock.Now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.interval)
}

// Height returns the sequence number of the current ledger.
func (c *ClockChain) Height() uint64 {
	return c.baseHeight + c.closed()
}

// Timestamp returns the close time of the current ledger in unix seconds.
func (c *ClockChain) Timestamp() uint64 {
	closedAt := c.genesis.Add(time.Duration(c.closed()) * c.interval)
	return uint64(closedAt.Unix())
}
