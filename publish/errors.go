package publish

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/cache"
)

// ErrRateLimited marks an attempt rejected by the gateway's rate limit.
var ErrRateLimited = errors.New("rate limited")

// ErrDeclined is returned when the cost confirmation is declined.
var ErrDeclined = errors.New("upload declined")

// TransactionBuildError reports a transaction that could not be constructed.
type TransactionBuildError struct {
	// Kind is "file" or "manifest".
	Kind string
	Err  error
}

func (e *TransactionBuildError) Error() string {
	return fmt.Sprintf("build %s transaction: %v", e.Kind, e.Err)
}

func (e *TransactionBuildError) Unwrap() error {
	return e.Err
}

// InsufficientBalanceError is returned when the wallet cannot cover the
// quoted cost.
type InsufficientBalanceError struct {
	Address string
	Balance *big.Int
	Cost    *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: have %s AR, need %s AR",
		e.Address, arweave.WinstonToAR(e.Balance), arweave.WinstonToAR(e.Cost))
}

// FatalRetryExhaustedError aborts the run after an item kept hitting the
// rate limit through every retry.
type FatalRetryExhaustedError struct {
	Item     string
	Attempts int
	Err      error
}

func (e *FatalRetryExhaustedError) Error() string {
	return fmt.Sprintf("failed to upload %s after %d attempts: %v", e.Item, e.Attempts, e.Err)
}

func (e *FatalRetryExhaustedError) Unwrap() error {
	return e.Err
}

// ManifestPublishError aborts the run when a manifest cannot be published.
// Cache entries recorded before it remain valid.
type ManifestPublishError struct {
	List cache.List
	Err  error
}

func (e *ManifestPublishError) Error() string {
	return fmt.Sprintf("publish %s manifest: %v; re-run upload to retry", e.List, e.Err)
}

func (e *ManifestPublishError) Unwrap() error {
	return e.Err
}

// IncompletePhaseError stops the run before manifest publication when
// some items of an upload phase failed.
type IncompletePhaseError struct {
	Phase    Phase
	Uploaded int
	Failed   []string
}

func (e *IncompletePhaseError) Error() string {
	return fmt.Sprintf("%s: %d uploaded, %d failed (%s); re-run upload to retry the failed items",
		e.Phase, e.Uploaded, len(e.Failed), strings.Join(e.Failed, ", "))
}
