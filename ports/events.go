package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// EventPublisher notifies downstream consumers about authentication activity
type EventPublisher interface {
	PublishLogin(ctx context.Context, session *core.Session) error
	PublishClaim(ctx context.Context, claim *core.ClaimRequest) error
}
