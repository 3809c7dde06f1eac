package consensus

import (
	"github.com/ethereum/go-ethereum/common"
)

// Signer produces a validator attestation over a message content hash. The
// engine is algorithm-agnostic; any unforgeable scheme satisfies it.
type Signer interface {
	// ID returns the validator identity the signatures belong to
	ID() string
	// Sign signs the 32-byte content hash
	Sign(hash common.Hash) ([]byte, error)
}

// Verifier checks a vote signature against the registered key of a
// validator.
type Verifier interface {
	Verify(validatorID string, hash common.Hash, signature []byte) error
}
