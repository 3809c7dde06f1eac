package consensus

import (
	"crypto/ecdsa"
	"sync"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ECDSASigner signs content hashes with a secp256k1 key. It is the default
// attestation scheme; deployments with other signature services plug in
// their own Signer/Verifier pair.
type ECDSASigner struct {
	id  string
	key *ecdsa.PrivateKey
}

// NewECDSASigner wraps a private key as a validator signer.
func NewECDSASigner(id string, key *ecdsa.PrivateKey) *ECDSASigner {
	return &ECDSASigner{id: id, key: key}
}

// ID returns the validator identity.
func (s *ECDSASigner) ID() string { return s.id }

// Sign signs the content hash.
func (s *ECDSASigner) Sign(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	return sig, errors.Wrap(err, "sign content hash")
}

// ECDSAVerifier verifies vote signatures by recovering the signing address
// and comparing it against the address registered for the validator.
type ECDSAVerifier struct {
	mu    sync.RWMutex
	addrs map[string]common.Address
}

// NewECDSAVerifier creates an empty verifier.
func NewECDSAVerifier() *ECDSAVerifier {
	return &ECDSAVerifier{addrs: make(map[string]common.Address)}
}

// Register binds a validator id to its signing address.
func (v *ECDSAVerifier) Register(validatorID string, addr common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addrs[validatorID] = addr
}

// Verify checks the signature over the hash against the validator's
// registered address.
func (v *ECDSAVerifier) Verify(validatorID string, hash common.Hash, signature []byte) error {
	v.mu.RLock()
	expected, ok := v.addrs[validatorID]
	v.mu.RUnlock()
	if !ok {
		return errors.Wrapf(gerror.ErrUnknownValidator, "no key registered for %s", validatorID)
	}

	pub, err := crypto.SigToPub(hash.Bytes(), signature)
	if err != nil {
		return errors.Wrap(gerror.ErrInvalidSignature, err.Error())
	}
	if crypto.PubkeyToAddress(*pub) != expected {
		return errors.Wrapf(gerror.ErrInvalidSignature, "signer mismatch for %s", validatorID)
	}
	return nil
}

// NoopVerifier accepts every signature. Useful in tests that exercise the
// quorum arithmetic without real keys.
type NoopVerifier struct{}

// Verify always succeeds.
func (NoopVerifier) Verify(string, common.Hash, []byte) error { return nil }
