package gerror

import "errors"

var (
	// ErrNotFound is used when the requested transaction or message is not found in the storage
	ErrNotFound = errors.New("not found in the storage")
	// ErrUnsupportedChain is used when the chain selector is not registered in the bridge
	ErrUnsupportedChain = errors.New("not registered chain")
	// ErrUnsupportedLane is used when the source/destination pair is not an enabled lane
	ErrUnsupportedLane = errors.New("not supported lane")
	// ErrSameChainLane is used when a transfer names the same chain as source and destination
	ErrSameChainLane = errors.New("source and destination chain must differ")
	// ErrEmptyMessage is used when a message carries neither payload nor token amounts
	ErrEmptyMessage = errors.New("message requires a payload or token amounts")
	// ErrNonPositiveAmount is used when a transfer amount is zero or negative
	ErrNonPositiveAmount = errors.New("Bridge amount must be positive")
	// ErrInvalidTransition is used when a lifecycle transition violates the state machine
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownExtraArgsTag is used when the extra args blob carries an unknown version tag
	ErrUnknownExtraArgsTag = errors.New("unknown extra args version tag")
	// ErrMalformedEnvelope is used when wire bytes cannot be decoded into a message
	ErrMalformedEnvelope = errors.New("malformed message envelope")
	// ErrConsensusTimeout is used when a message did not reach quorum before the liveness timeout
	ErrConsensusTimeout = errors.New("consensus timed out before reaching quorum")
	// ErrUnknownValidator is used when a vote comes from outside the validator set
	ErrUnknownValidator = errors.New("validator not part of the validator set")
	// ErrInvalidSignature is used when a vote signature does not verify over the message hash
	ErrInvalidSignature = errors.New("invalid vote signature")
	// ErrExecutionFailed is used when the destination chain dispatch failed after quorum
	ErrExecutionFailed = errors.New("destination execution failed")
)
