package errors

import (
	stderrors "errors"

	"nanochain/jsonx"
)

// ChainErrorCode represents standardized error codes for chain operations
type ChainErrorCode string

const (
	// Structural errors
	ErrCodeNoGenesis ChainErrorCode = "no_genesis"

	// Validation failures, one code per rejection cause
	ErrCodeBadLinkage   ChainErrorCode = "bad_linkage"
	ErrCodePowNotMet    ChainErrorCode = "pow_not_met"
	ErrCodeHashMismatch ChainErrorCode = "hash_mismatch"

	// Decode errors
	ErrCodeMalformedHash ChainErrorCode = "malformed_hash"

	// Consensus failures
	ErrCodeNoValidChain ChainErrorCode = "no_valid_chain"

	// Mining
	ErrCodeMiningCancelled ChainErrorCode = "mining_cancelled"
	ErrCodeMiningExhausted ChainErrorCode = "mining_exhausted"
)

// ChainError represents a standardized chain engine error
type ChainError struct {
	Code    ChainErrorCode `json:"code"`
	Message string         `json:"message"`
}

// Error implements the error interface
func (e *ChainError) Error() string {
	err, _ := jsonx.Marshal(ChainError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgNoGenesis       = "Chain has no genesis block yet"
	ErrMsgBadLinkage      = "Block does not link to the previous block"
	ErrMsgPowNotMet       = "Block hash does not satisfy the difficulty target"
	ErrMsgHashMismatch    = "Block hash does not match its recomputed digest"
	ErrMsgMalformedHash   = "Block hash is not a valid hex string"
	ErrMsgNoValidChain    = "Both local and remote chains are invalid"
	ErrMsgMiningCancelled = "Mining was stopped before a nonce was found"
	ErrMsgMiningExhausted = "Mining attempt budget exhausted"
)

// NewError creates a new ChainError and returns it as error interface
func NewError(code ChainErrorCode, message string) error {
	return &ChainError{
		Code:    code,
		Message: message,
	}
}

// CodeOf extracts the ChainErrorCode from err, or "" when err is not a ChainError.
func CodeOf(err error) ChainErrorCode {
	var ce *ChainError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsValidationFailure reports whether err is one of the three block rejection causes.
func IsValidationFailure(err error) bool {
	switch CodeOf(err) {
	case ErrCodeBadLinkage, ErrCodePowNotMet, ErrCodeHashMismatch:
		return true
	}
	return false
}
