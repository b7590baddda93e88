package solana

import (
	"bytes"
	"fmt"
)

const signatureSize = 64

// signTransaction takes a serialized (legacy or versioned) transaction,
// signs the message with the keypair, and writes the signature into the
// slot belonging to the keypair's account. The wire format is a compact-u16
// count of 64-byte signatures followed by the message; the message is never
// modified, so provider-built instructions pass through untouched.
func signTransaction(tx []byte, kp Keypair) ([]byte, error) {
	numSigs, sigStart, err := decodeCompactU16(tx)
	if err != nil {
		return nil, fmt.Errorf("solana: parse transaction: %w", err)
	}
	msgStart := sigStart + numSigs*signatureSize
	if msgStart > len(tx) {
		return nil, fmt.Errorf("solana: transaction truncated: %d signatures expected", numSigs)
	}
	message := tx[msgStart:]

	slot, err := signerSlot(message, kp.publicKeyBytes(), numSigs)
	if err != nil {
		return nil, err
	}

	signed := make([]byte, len(tx))
	copy(signed, tx)
	sig := kp.sign(message)
	copy(signed[sigStart+slot*signatureSize:], sig)
	return signed, nil
}

// signerSlot finds the keypair's position among the message's required
// signers, which is also its signature slot.
func signerSlot(message, pubkey []byte, numSigs int) (int, error) {
	if len(message) == 0 {
		return 0, fmt.Errorf("solana: empty transaction message")
	}

	offset := 0
	// Versioned messages carry a version prefix byte with the high bit set.
	if message[0]&0x80 != 0 {
		offset = 1
	}
	if len(message) < offset+3 {
		return 0, fmt.Errorf("solana: transaction message header truncated")
	}
	numRequired := int(message[offset])
	offset += 3 // header: required sigs, readonly signed, readonly unsigned

	numKeys, keyStart, err := decodeCompactU16(message[offset:])
	if err != nil {
		return 0, fmt.Errorf("solana: parse account keys: %w", err)
	}
	offset += keyStart
	if len(message) < offset+numKeys*32 {
		return 0, fmt.Errorf("solana: account keys truncated")
	}
	if numRequired > numSigs {
		return 0, fmt.Errorf("solana: message requires %d signatures, transaction has room for %d", numRequired, numSigs)
	}

	for i := 0; i < numRequired; i++ {
		key := message[offset+i*32 : offset+(i+1)*32]
		if bytes.Equal(key, pubkey) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("solana: signer is not among the transaction's required signers")
}

// decodeCompactU16 reads a compact-u16 (shortvec) length prefix, returning
// the value and the number of bytes consumed.
func decodeCompactU16(b []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		elem := int(b[i])
		value |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
