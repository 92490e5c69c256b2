package ports

import (
	"context"

	"github.com/layer-3/sweeper/core"
)

// EventPublisher notifies external consumers about committed state changes.
type EventPublisher interface {
	PublishSweepCompleted(ctx context.Context, event core.SweepCompleted) error
	PublishPaymentRecorded(ctx context.Context, event core.PaymentRecorded) error
}
