// Package solana executes swaps on Solana through the Jupiter APIs. The
// returned versioned transactions are always deserialized and signed
// locally; key material never leaves this package.
package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Keypair wraps an ed25519 signing key and its base58 public key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// ParseKeypair accepts the two private-key encodings wallets export: a JSON
// byte array (the 64-byte secret key) or a hex string with optional 0x
// prefix (64-byte secret key or 32-byte seed).
func ParseKeypair(privateKey string) (Keypair, error) {
	trimmed := strings.TrimSpace(privateKey)

	if strings.Contains(trimmed, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(trimmed), &ints); err != nil {
			return Keypair{}, fmt.Errorf("solana: invalid sol private key format")
		}
		raw := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return Keypair{}, fmt.Errorf("solana: invalid sol private key format")
			}
			raw[i] = byte(v)
		}
		return keypairFromBytes(raw)
	}

	normalized := strings.TrimPrefix(trimmed, "0x")
	if raw, err := hex.DecodeString(normalized); err == nil {
		return keypairFromBytes(raw)
	}
	return Keypair{}, fmt.Errorf("solana: invalid sol private key format")
}

func keypairFromBytes(raw []byte) (Keypair, error) {
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return Keypair{priv: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return Keypair{priv: ed25519.NewKeyFromSeed(raw)}, nil
	default:
		return Keypair{}, fmt.Errorf("solana: invalid sol private key format")
	}
}

// PublicKey returns the base58-encoded public key.
func (k Keypair) PublicKey() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// publicKeyBytes returns the raw 32-byte public key.
func (k Keypair) publicKeyBytes() []byte {
	return k.priv.Public().(ed25519.PublicKey)
}

// sign produces a 64-byte ed25519 signature over message.
func (k Keypair) sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
