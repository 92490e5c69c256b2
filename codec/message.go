// Package codec builds the canonical sweep authorization message. The off-chain
// signer and the controller must produce byte-identical output for a signature
// to verify.
package codec

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/layer-3/sweeper/core"
)

const (
	// MessageSize is the length of the canonical message:
	// destination(32) || nonce(8) || controller(32) || timestamp(8).
	MessageSize = core.AddressLength + 8 + core.AddressLength + 8

	// DigestSize is the length of the digest that gets signed.
	DigestSize = sha256.Size
)

// SweepMessage is the tuple an authorizing signature commits to. It is never
// persisted.
type SweepMessage struct {
	Destination core.Address
	Nonce       uint64
	Controller  core.Address
	Timestamp   uint64
}

// Bytes returns the canonical encoding. Integers are big-endian.
func (m SweepMessage) Bytes() []byte {
	b := make([]byte, 0, MessageSize)
	b = append(b, m.Destination[:]...)
	b = binary.BigEndian.AppendUint64(b, m.Nonce)
	b = append(b, m.Controller[:]...)
	b = binary.BigEndian.AppendUint64(b, m.Timestamp)
	return b
}

// Digest returns SHA-256 over the canonical encoding.
func (m SweepMessage) Digest() [DigestSize]byte {
	return sha256.Sum256(m.Bytes())
}

// Digest builds the message for the given fields and returns its digest.
func Digest(destination core.Address, nonce uint64, controller core.Address,
	timestamp uint64) [DigestSize]byte {

	return SweepMessage{
		Destination: destination,
		Nonce:       nonce,
		Controller:  controller,
		Timestamp:   timestamp,
	}.Digest()
}
