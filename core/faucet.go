package core

import "time"

// ClaimRequest is a faucet claim handed to the external on-chain executor
type ClaimRequest struct {
	ID          string    // Unique request identifier
	Address     string    // Normalized recipient address
	ChainID     int64     // Chain the recipient authenticated on
	Token       string    // Token contract address
	Amount      string    // Amount in base units (wei-like), decimal string
	RequestedAt time.Time // When the claim was accepted
}
