// Package poolerrors defines the sentinel errors shared across the shielded
// pool nullifier tree packages. Every error carries a stable "CODE|Name"
// prefix so log lines and test vectors can match on the short name.
package poolerrors

import (
	"errors"
	"strings"
)

// Structural (S) errors
var (
	ErrInvalidProofLength = errors.New("S1|InvalidProofLength: Merkle proof length does not match the tree height.")
	ErrArithmeticOverflow = errors.New("S2|ArithmeticOverflow: Hash input is not a canonical field element or index arithmetic overflowed.")
	ErrInvalidTreeHeight  = errors.New("S3|InvalidTreeHeight: Tree height must be between 1 and 63.")
	ErrCorruptRecord      = errors.New("S4|CorruptRecord: Stored record has an unexpected length or layout.")
)

// Tree consistency (N) errors
var (
	ErrUnknownNullifierRoot        = errors.New("N1|UnknownNullifierRoot: Low nullifier proof does not resolve to the current tree root.")
	ErrInvalidLowNullifierOrdering = errors.New("N2|InvalidLowNullifierOrdering: Candidate nullifier is not bracketed by the supplied low nullifier.")
	ErrNullifierTreeFull           = errors.New("N3|NullifierTreeFull: Tree has no remaining leaf slots.")
	ErrTreeAlreadyInitialized      = errors.New("N4|TreeAlreadyInitialized: Tree state is already populated.")
	ErrTreeNotFound                = errors.New("N5|TreeNotFound: No tree state stored under the given id.")
)

// Record (R) errors
var (
	ErrNullifierAlreadyReserved = errors.New("R1|NullifierAlreadyReserved: A pending record already exists for this nullifier value.")
	ErrNullifierNotFound        = errors.New("R2|NullifierNotFound: No record stored for this nullifier value.")
	ErrInvalidPendingIndex      = errors.New("R3|InvalidPendingIndex: Record pending index does not match the next insertion slot.")
	ErrNullifierAlreadyInserted = errors.New("R4|NullifierAlreadyInserted: Record was already merged in an earlier epoch.")
	ErrNullifierNotInserted     = errors.New("R5|NullifierNotInserted: Record has not been merged into the tree yet.")
	ErrNullifierStillProvable   = errors.New("R6|NullifierStillProvable: Record epoch is still inside the provable window.")
)

// Epoch (E) errors
var (
	ErrEpochAdvanceTooSoon  = errors.New("E1|EpochAdvanceTooSoon: Pending insertions remain and the minimum slot interval has not elapsed.")
	ErrInvalidEarliestEpoch = errors.New("E2|InvalidEarliestEpoch: Earliest provable epoch may not move backward or past the provable window.")
	ErrEpochStillProvable   = errors.New("E3|EpochStillProvable: Epoch root snapshot is still inside the provable window.")
	ErrEpochNotProvable     = errors.New("E4|EpochNotProvable: Epoch is outside the provable window.")
	ErrEpochRootExists      = errors.New("E5|EpochRootExists: A snapshot is already stored for this epoch.")
	ErrEpochRootNotFound    = errors.New("E6|EpochRootNotFound: No snapshot stored for this epoch.")
)

// Authorization and proof-oracle (P) errors
var (
	ErrUnauthorized     = errors.New("P1|Unauthorized: Caller is not the record authority and the grace window is still open.")
	ErrInvalidBatchSize = errors.New("P2|InvalidBatchSize: Batch size is zero or exceeds the configured maximum.")
	ErrInvalidProof     = errors.New("P3|InvalidProof: Batch insertion proof was rejected by the verifier.")
	ErrNoVerifier       = errors.New("P4|NoVerifier: Pool was constructed without a batch proof verifier.")
)

// GetErrorName extracts the short error name from a sentinel's message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameParts := strings.SplitN(parts[1], ":", 2)
	if len(nameParts) < 1 {
		return errStr
	}
	return strings.TrimSpace(nameParts[0])
}
