package domain

import "github.com/pkg/errors"

// Sentinel errors shared across services. Callers match them with errors.Is
// after unwrapping whatever context was added along the way.
var (
	// ErrInvalidAmount marks a non-positive, malformed or oversized amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientCollateral marks an action that would push the account
	// below the liquidation threshold.
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	// ErrPriceUnavailable marks a price the resolver could not produce,
	// fresh or stale.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrNotFound marks an unknown asset symbol or position id.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks an on-chain confirmation that did not arrive in time.
	ErrTimeout = errors.New("confirmation timeout")
	// ErrExternalFailure marks an opaque wallet/RPC collaborator error.
	ErrExternalFailure = errors.New("external failure")
)
