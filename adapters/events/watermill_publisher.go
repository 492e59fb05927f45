package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const (
	TopicLogin = "walletauth.login"
	TopicClaim = "walletauth.faucet.claim"
)

// LoginEvent represents a successful wallet sign-in
type LoginEvent struct {
	Address  string    `json:"address"`
	ChainID  int64     `json:"chainId"`
	TokenID  string    `json:"tokenId"`
	IssuedAt time.Time `json:"issuedAt"`
}

// ClaimEvent asks the on-chain executor to send faucet tokens
type ClaimEvent struct {
	RequestID   string    `json:"requestId"`
	Address     string    `json:"address"`
	ChainID     int64     `json:"chainId"`
	Token       string    `json:"token"`
	Amount      string    `json:"amount"`
	RequestedAt time.Time `json:"requestedAt"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicLogin, session.ID, LoginEvent{
		Address:  session.Address,
		ChainID:  session.ChainID,
		TokenID:  session.ID,
		IssuedAt: session.IssuedAt,
	})
}

// PublishClaim publishes a faucet claim request
func (p *WatermillPublisher) PublishClaim(ctx context.Context, claim *core.ClaimRequest) error {
	return p.publish(ctx, TopicClaim, claim.ID, ClaimEvent{
		RequestID:   claim.ID,
		Address:     claim.Address,
		ChainID:     claim.ChainID,
		Token:       claim.Token,
		Amount:      claim.Amount,
		RequestedAt: claim.RequestedAt,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
