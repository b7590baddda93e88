package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCompactU16(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		value    int
		consumed int
		wantErr  bool
	}{
		{name: "zero", in: []byte{0x00}, value: 0, consumed: 1},
		{name: "single byte", in: []byte{0x05}, value: 5, consumed: 1},
		{name: "max single byte", in: []byte{0x7f}, value: 127, consumed: 1},
		{name: "two bytes", in: []byte{0x80, 0x01}, value: 128, consumed: 2},
		{name: "two bytes mixed", in: []byte{0xff, 0x01}, value: 255, consumed: 2},
		{name: "three bytes", in: []byte{0x80, 0x80, 0x01}, value: 16384, consumed: 3},
		{name: "empty", in: nil, wantErr: true},
		{name: "truncated continuation", in: []byte{0x80}, wantErr: true},
		{name: "never terminates", in: []byte{0x80, 0x80, 0x80, 0x01}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, consumed, err := decodeCompactU16(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.consumed, consumed)
		})
	}
}

// buildUnsignedTx assembles a minimal serialized transaction with one empty
// signature slot and a message whose first account key is the signer.
func buildUnsignedTx(signer []byte, versioned bool) []byte {
	var msg []byte
	if versioned {
		msg = append(msg, 0x80) // v0 prefix
	}
	msg = append(msg, 1, 0, 1) // header: 1 required signature
	msg = append(msg, 2)       // compact-u16 account count
	msg = append(msg, signer...)
	msg = append(msg, make([]byte, 32)...) // a second, non-signer account
	msg = append(msg, 0x01, 0x02, 0x03)    // opaque message tail

	tx := []byte{1}                              // compact-u16 signature count
	tx = append(tx, make([]byte, signatureSize)...) // empty slot
	return append(tx, msg...)
}

func testKeypair(t *testing.T) Keypair {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	kp, err := ParseKeypair(hex.EncodeToString(seed))
	require.NoError(t, err)
	return kp
}

func TestSignTransaction_LegacyAndVersioned(t *testing.T) {
	kp := testKeypair(t)

	for _, versioned := range []bool{false, true} {
		tx := buildUnsignedTx(kp.publicKeyBytes(), versioned)
		signed, err := signTransaction(tx, kp)
		require.NoError(t, err)
		require.Len(t, signed, len(tx))

		sig := signed[1 : 1+signatureSize]
		message := signed[1+signatureSize:]
		assert.True(t, ed25519.Verify(kp.publicKeyBytes(), message, sig),
			"versioned=%v: signature must verify against the untouched message", versioned)

		// Everything outside the signature slot is byte-identical.
		assert.Equal(t, tx[1+signatureSize:], message)
	}
}

func TestSignTransaction_SignerNotInMessage(t *testing.T) {
	kp := testKeypair(t)
	other := make([]byte, 32)
	other[0] = 0xee

	tx := buildUnsignedTx(other, false)
	_, err := signTransaction(tx, kp)
	assert.ErrorContains(t, err, "required signers")
}

func TestSignTransaction_Truncated(t *testing.T) {
	kp := testKeypair(t)

	_, err := signTransaction([]byte{2, 0, 0}, kp)
	assert.Error(t, err)

	_, err = signTransaction(nil, kp)
	assert.Error(t, err)
}

func TestParseKeypair(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	full := ed25519.NewKeyFromSeed(seed)

	fromSeedHex, err := ParseKeypair("0x" + hex.EncodeToString(seed))
	require.NoError(t, err)

	fromFullHex, err := ParseKeypair(hex.EncodeToString(full))
	require.NoError(t, err)
	assert.Equal(t, fromSeedHex.PublicKey(), fromFullHex.PublicKey())

	// JSON int-array export, the solana-keygen format.
	ints := make([]int, len(full))
	for i, b := range full {
		ints[i] = int(b)
	}
	arr, err := json.Marshal(ints)
	require.NoError(t, err)
	fromArray, err := ParseKeypair(string(arr))
	require.NoError(t, err)
	assert.Equal(t, fromSeedHex.PublicKey(), fromArray.PublicKey())

	for _, bad := range []string{
		"", "zz", "0x1234", "[1,2,3]", "[1,300]", "[-1]", "not a key",
	} {
		_, err := ParseKeypair(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
