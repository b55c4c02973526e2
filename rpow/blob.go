// Package rpow defines the on-disk RPOW blob format: the opaque,
// server-signed token a wallet holds and an exchange consumes or produces.
// Neither the minting engine nor the exchange orchestrator ever inspects a
// blob's Payload; they only move it between a wallet, a signer, and the
// wire.
package rpow

import (
	"encoding/binary"
	"fmt"
)

// ValueMin and ValueMax bound the denomination exponent a blob may carry.
// These are parameters of the signing service; this client defaults to the
// same range the reference deployment uses.
const (
	ValueMin = -32
	ValueMax = 32
)

// Blob is one RPOW token as held in the wallet file.
type Blob struct {
	Value       int8
	ID          []byte
	IssuerKeyID [32]byte
	Payload     []byte
}

// ValueInRange reports whether b.Value falls within [ValueMin, ValueMax].
func (b Blob) ValueInRange() bool {
	return int(b.Value) >= ValueMin && int(b.Value) <= ValueMax
}

// Encode serializes b using the wallet's wire layout:
//
//	value int8 (1) | issuer_key_id (32) | id_len u16le (2) | id | payload_len u32le (4) | payload
func Encode(b Blob) ([]byte, error) {
	if len(b.ID) > 0xffff {
		return nil, fmt.Errorf("rpow: id too large (%d bytes)", len(b.ID))
	}
	if len(b.Payload) > 0xffffffff {
		return nil, fmt.Errorf("rpow: payload too large (%d bytes)", len(b.Payload))
	}

	out := make([]byte, 1+32+2+len(b.ID)+4+len(b.Payload))
	pos := 0

	out[pos] = byte(b.Value)
	pos++

	copy(out[pos:pos+32], b.IssuerKeyID[:])
	pos += 32

	binary.LittleEndian.PutUint16(out[pos:pos+2], uint16(len(b.ID))) // #nosec G115 -- bounded above.
	pos += 2
	copy(out[pos:pos+len(b.ID)], b.ID)
	pos += len(b.ID)

	binary.LittleEndian.PutUint32(out[pos:pos+4], uint32(len(b.Payload))) // #nosec G115 -- bounded above.
	pos += 4
	copy(out[pos:], b.Payload)

	return out, nil
}

// Decode parses a blob from its wire layout. It reports how many bytes of
// b it consumed so callers scanning a concatenation of blobs (the wallet
// file) can advance past exactly one record.
func Decode(b []byte) (blob Blob, consumed int, err error) {
	const headerLen = 1 + 32 + 2
	if len(b) < headerLen {
		return Blob{}, 0, fmt.Errorf("rpow: truncated header")
	}

	value := int8(b[0])
	var keyID [32]byte
	copy(keyID[:], b[1:33])
	idLen := int(binary.LittleEndian.Uint16(b[33:35]))

	pos := headerLen
	if len(b) < pos+idLen+4 {
		return Blob{}, 0, fmt.Errorf("rpow: truncated id/payload-length")
	}
	id := make([]byte, idLen)
	copy(id, b[pos:pos+idLen])
	pos += idLen

	payloadLen := int(binary.LittleEndian.Uint32(b[pos : pos+4]))
	pos += 4
	if len(b) < pos+payloadLen {
		return Blob{}, 0, fmt.Errorf("rpow: truncated payload")
	}
	payload := make([]byte, payloadLen)
	copy(payload, b[pos:pos+payloadLen])
	pos += payloadLen

	return Blob{
		Value:       value,
		ID:          id,
		IssuerKeyID: keyID,
		Payload:     payload,
	}, pos, nil
}
