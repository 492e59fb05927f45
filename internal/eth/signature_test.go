package eth

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverPersonalSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	msg := []byte("localhost wants you to sign in with your Ethereum account")
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)

	t.Run("raw recovery id", func(t *testing.T) {
		got, err := RecoverPersonalSigner(msg, sig)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("wallet recovery id", func(t *testing.T) {
		walletSig := append([]byte(nil), sig...)
		walletSig[64] += 27

		got, err := RecoverPersonalSigner(msg, walletSig)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, sig[64]+27, walletSig[64], "input must not be mutated")
	})

	t.Run("different message", func(t *testing.T) {
		got, err := RecoverPersonalSigner([]byte("localhost wants you to sign in with your Ethereum account "), sig)
		if err == nil {
			assert.NotEqual(t, want, got)
		}
	})

	t.Run("bad recovery id", func(t *testing.T) {
		bad := append([]byte(nil), sig...)
		bad[64] = 5

		_, err := RecoverPersonalSigner(msg, bad)
		assert.ErrorIs(t, err, ErrBadRecoveryID)
	})

	t.Run("short signature", func(t *testing.T) {
		_, err := RecoverPersonalSigner(msg, sig[:64])
		assert.ErrorIs(t, err, ErrBadSignatureLength)
	})
}

func TestDecodeSignature(t *testing.T) {
	good := make([]byte, SignatureLength)
	good[0] = 1

	sig, err := DecodeSignature(hexutil.Encode(good))
	require.NoError(t, err)
	assert.Equal(t, good, sig)

	_, err = DecodeSignature("deadbeef")
	assert.ErrorIs(t, err, ErrBadSignatureEncoding)

	_, err = DecodeSignature("0xzz")
	assert.ErrorIs(t, err, ErrBadSignatureEncoding)

	_, err = DecodeSignature(hexutil.Encode(good[:10]))
	assert.ErrorIs(t, err, ErrBadSignatureLength)
}

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("0xAbC0000000000000000000000000000000000001"))
	assert.False(t, IsAddress("AbC0000000000000000000000000000000000001"))
	assert.False(t, IsAddress("0xAbC00000000000000000000000000000000001"))
	assert.False(t, IsAddress("0xZZZ0000000000000000000000000000000000001"))
	assert.False(t, IsAddress(""))
}

func TestSignPersonal(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte("sign me")
	sig, err := SignPersonal(msg, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	got, err := RecoverPersonalSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), got)

	decoded, err := DecodeSignature(hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)
}
