package wallet

import (
	"encoding/binary"

	"github.com/luca-patrignani/chainplay/prover"
)

// Session is the player's wallet state. The zero value is a disconnected
// session; once connected it never changes again.
type Session struct {
	Address   string
	Secret    uint64
	Connected bool
}

// DeriveSecret maps a wallet address to the player secret used by every
// proof: the first four bytes of SHA-256(address), big-endian.
func DeriveSecret(address string) uint64 {
	sum := prover.Sum([]byte(address))
	return uint64(binary.BigEndian.Uint32(sum[:4]))
}

func newSession(address string) Session {
	return Session{Address: address, Secret: DeriveSecret(address), Connected: true}
}

// Short returns the first eight characters of the address.
func (s Session) Short() string {
	return Truncate(s.Address, 8)
}

// Truncate cuts s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
