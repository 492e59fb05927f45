// Package eth holds the Ethereum primitives used to verify wallet signatures.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an [R || S || V] secp256k1 signature
const SignatureLength = crypto.SignatureLength

var (
	ErrBadSignatureEncoding = errors.New("signature must be 0x-prefixed hex")
	ErrBadSignatureLength   = errors.New("signature must be 65 bytes")
	ErrBadRecoveryID        = errors.New("signature recovery id out of range")
)

// DecodeSignature decodes a hex signature as produced by personal_sign
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignatureEncoding, err)
	}
	if len(sig) != SignatureLength {
		return nil, ErrBadSignatureLength
	}
	return sig, nil
}

// RecoverPersonalSigner recovers the address that signed message with personal_sign (EIP-191).
// Wallets emit V as 27/28, go-ethereum expects 0/1; both are accepted.
func RecoverPersonalSigner(message []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrBadSignatureLength
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrBadRecoveryID
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// SignPersonal signs message the way a wallet's personal_sign does, with V as 27/28
func SignPersonal(message []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// IsAddress reports whether s is a 0x-prefixed 20 byte hex address
func IsAddress(s string) bool {
	return len(s) == 2+2*common.AddressLength && s[:2] == "0x" && common.IsHexAddress(s)
}
