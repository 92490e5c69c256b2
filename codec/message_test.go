package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/layer-3/sweeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(b byte) core.Address {
	var a core.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestSweepMessageLayout(t *testing.T) {
	m := SweepMessage{
		Destination: filled(0xaa),
		Nonce:       0x0102030405060708,
		Controller:  filled(0xcc),
		Timestamp:   1700000000,
	}

	b := m.Bytes()
	require.Len(t, b, MessageSize)

	assert.Equal(t, filled(0xaa).Bytes(), b[0:32])
	assert.Equal(t, "0102030405060708", hex.EncodeToString(b[32:40]))
	assert.Equal(t, filled(0xcc).Bytes(), b[40:72])
	// 1700000000 = 0x6553f100
	assert.Equal(t, "000000006553f100", hex.EncodeToString(b[72:80]))
}

func TestDigestIsSHA256OfCanonicalBytes(t *testing.T) {
	m := SweepMessage{
		Destination: filled(0x01),
		Nonce:       7,
		Controller:  filled(0x02),
		Timestamp:   42,
	}

	want := sha256.Sum256(m.Bytes())
	assert.Equal(t, want, m.Digest())
	assert.Equal(t, want, Digest(m.Destination, m.Nonce, m.Controller, m.Timestamp))
}

func TestDigestCommitsToEveryField(t *testing.T) {
	base := SweepMessage{
		Destination: filled(0x01),
		Nonce:       1,
		Controller:  filled(0x02),
		Timestamp:   100,
	}

	variants := map[string]SweepMessage{
		"destination": {filled(0x03), 1, filled(0x02), 100},
		"nonce":       {filled(0x01), 2, filled(0x02), 100},
		"controller":  {filled(0x01), 1, filled(0x04), 100},
		"timestamp":   {filled(0x01), 1, filled(0x02), 101},
		"swapped":     {filled(0x02), 1, filled(0x01), 100},
	}

	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, base.Digest(), v.Digest())
		})
	}
}

func TestDigestDeterministic(t *testing.T) {
	d1 := Digest(filled(0x11), 0, filled(0x22), 0)
	d2 := Digest(filled(0x11), 0, filled(0x22), 0)
	assert.Equal(t, d1, d2)
}

// Fixed vector shared with off-chain signer implementations.
func TestDigestVector(t *testing.T) {
	d := Digest(filled(0x01), 0, filled(0x02), 1700000000)
	assert.Equal(t,
		"5d03782c8dd67db55a8937eedb11fd914bfa2e95fd143cd0035d337586595577",
		hex.EncodeToString(d[:]),
	)
}
