package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestWatermillPublisher_PublishLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, TopicLogin)
	require.NoError(t, err)

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishLogin(ctx, &core.Session{
		ID:        "token-1",
		Address:   "0xabc",
		ChainID:   11155111,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}))

	msg := receive(t, messages)
	assert.Equal(t, "token-1", msg.UUID)

	var event LoginEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, LoginEvent{Address: "0xabc", ChainID: 11155111, TokenID: "token-1", IssuedAt: issued}, event)
}

func TestWatermillPublisher_PublishClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, TopicClaim)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishClaim(ctx, &core.ClaimRequest{
		ID:      "claim-1",
		Address: "0xabc",
		ChainID: 1,
		Token:   "0x3e2117c19a921507ead57494bbf29032f33c7412",
		Amount:  "100000000000000000000",
	}))

	msg := receive(t, messages)
	assert.Equal(t, "claim-1", msg.UUID)

	var event ClaimEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, "100000000000000000000", event.Amount)
	assert.Equal(t, "0xabc", event.Address)
}

type failingPublisher struct{}

func (failingPublisher) Publish(topic string, messages ...*message.Message) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() error { return nil }

func TestWatermillPublisher_PublishError(t *testing.T) {
	pub := NewWatermillPublisher(failingPublisher{})

	err := pub.PublishLogin(context.Background(), &core.Session{ID: "x"})
	assert.ErrorContains(t, err, "broker down")
}
