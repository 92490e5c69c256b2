package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength is the size in bytes of an account, asset or controller
// identity.
const AddressLength = 32

// Address identifies an ephemeral account, a destination, an asset or a
// controller deployment. Its canonical encoding is the raw 32 bytes.
type Address [AddressLength]byte

// ParseAddress decodes a 0x-prefixed hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hexutil.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidAddress, AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns the canonical encoding of the address.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// IsZero reports whether the address is all zeroes.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
