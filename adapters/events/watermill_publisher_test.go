package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/sweeper/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishSweepCompleted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, core.SweepCompletedTopic)
	require.NoError(t, err)

	event := core.SweepCompleted{
		Account:     core.Address{0x01},
		Destination: core.Address{0x02},
		Nonce:       3,
		Balances: map[core.Address]decimal.Decimal{
			{0x05}: decimal.NewFromInt(100),
		},
		Height:    10,
		Timestamp: 1700000000,
	}

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishSweepCompleted(ctx, event))

	msg := receive(t, messages)
	assert.Equal(t, event.Account.String(), msg.Metadata.Get("account"))
	assert.NotEmpty(t, msg.UUID)

	var got core.SweepCompleted
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, event.Account, got.Account)
	assert.Equal(t, event.Destination, got.Destination)
	assert.Equal(t, event.Nonce, got.Nonce)
	assert.True(t, got.Balances[core.Address{0x05}].Equal(decimal.NewFromInt(100)))
}

func TestPublishPaymentRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, core.PaymentRecordedTopic)
	require.NoError(t, err)

	event := core.PaymentRecorded{
		Account:      core.Address{0x01},
		Asset:        core.Address{0x05},
		Amount:       decimal.NewFromInt(7),
		PaymentCount: 2,
	}

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishPaymentRecorded(ctx, event))

	var got core.PaymentRecorded
	require.NoError(t, json.Unmarshal(receive(t, messages).Payload, &got))
	assert.Equal(t, 2, got.PaymentCount)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(7)))
}
