package snapshot

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/crypto/sha3"
)

// Encode returns snap as JSON.
func Encode(snap *Snapshot) ([]byte, error) {
	return sonnet.Marshal(snap)
}

// Decode parses and validates a snapshot written by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := sonnet.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Digest returns the SHA3-256 digest of an encoded snapshot.
func Digest(payload []byte) [32]byte {
	return sha3.Sum256(payload)
}
