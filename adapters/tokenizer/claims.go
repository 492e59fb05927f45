package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the wallet session ones
type SessionClaims struct {
	jwt.RegisteredClaims
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
}
