package service

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
)

var (
	// accountPrefix maps: account address -> JSON EphemeralAccount
	accountPrefix = []byte("account/")

	// sweepPrefix maps: account address -> JSON SweepCompleted
	sweepPrefix = []byte("sweep/")

	// controllerPrefix namespaces per-deployment controller state.
	//
	// maps: id || signerSuffix -> 32 byte public key
	//       id || nonceSuffix  -> 8 byte big-endian nonce
	controllerPrefix = []byte("controller/")
	signerSuffix     = []byte("/signer")
	nonceSuffix      = []byte("/nonce")

	byteOrder = binary.BigEndian
)

func prefixedKey(prefix []byte, addr core.Address, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+core.AddressLength+len(suffix))
	key = append(key, prefix...)
	key = append(key, addr[:]...)
	return append(key, suffix...)
}

func accountKey(addr core.Address) []byte {
	return prefixedKey(accountPrefix, addr, nil)
}

func sweepKey(addr core.Address) []byte {
	return prefixedKey(sweepPrefix, addr, nil)
}

func signerKey(controller core.Address) []byte {
	return prefixedKey(controllerPrefix, controller, signerSuffix)
}

func nonceKey(controller core.Address) []byte {
	return prefixedKey(controllerPrefix, controller, nonceSuffix)
}

// getJSON decodes the value at key into v. It returns false if the key is
// absent.
func getJSON(tx ports.ReadTx, key []byte, v interface{}) (bool, error) {
	b, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

func putJSON(tx ports.Tx, key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return tx.Put(key, b)
}
