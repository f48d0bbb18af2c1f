package publish

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/metrics"
)

// Network is the storage network client consumed by the pipeline.
// *arweave.Client implements it.
type Network interface {
	CreateTransaction(ctx context.Context, data []byte, w *arweave.Wallet) (*arweave.Transaction, error)
	Sign(tx *arweave.Transaction, w *arweave.Wallet) error
	Uploader(tx *arweave.Transaction) (arweave.ChunkUploader, error)
	Price(ctx context.Context, size int64) (*big.Int, error)
	Balance(ctx context.Context, address string) (*big.Int, error)
	Address(w *arweave.Wallet) (string, error)
}

var _ Network = (*arweave.Client)(nil)

// OutcomeKind classifies one upload attempt.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// UploadOutcome is the result of one attempt for one item.
type UploadOutcome struct {
	Kind          OutcomeKind
	TransactionID string
	Err           error
}

// Classify turns an attempt result into an outcome.
func Classify(txID string, err error) UploadOutcome {
	switch {
	case err == nil:
		return UploadOutcome{Kind: OutcomeSuccess, TransactionID: txID}
	case errors.Is(err, ErrRateLimited), arweave.IsRateLimited(err):
		return UploadOutcome{Kind: OutcomeRateLimited, Err: err}
	default:
		return UploadOutcome{Kind: OutcomeFailed, Err: err}
	}
}

// ChunkedUploader signs transactions and drives their chunked upload.
// It never retries; retry policy belongs to the Pipeline.
type ChunkedUploader struct {
	net     Network
	wallet  *arweave.Wallet
	metrics *metrics.Collector
}

// NewChunkedUploader returns an uploader signing with wallet.
func NewChunkedUploader(net Network, wallet *arweave.Wallet, m *metrics.Collector) *ChunkedUploader {
	return &ChunkedUploader{net: net, wallet: wallet, metrics: m}
}

// Submit signs tx and uploads it until the gateway reports completion.
// A rate-limit rejection is returned wrapped in ErrRateLimited.
func (u *ChunkedUploader) Submit(ctx context.Context, tx *arweave.Transaction) (string, error) {
	if err := u.net.Sign(tx, u.wallet); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	up, err := u.net.Uploader(tx)
	if err != nil {
		return "", fmt.Errorf("start upload %s: %w", tx.ID, err)
	}
	for !up.IsComplete() {
		if err := up.UploadChunk(ctx); err != nil {
			if arweave.IsRateLimited(err) {
				return "", fmt.Errorf("upload %s: %w: %w", tx.ID, ErrRateLimited, err)
			}
			return "", fmt.Errorf("upload %s: %w", tx.ID, err)
		}
		u.metrics.AddChunks(1)
	}
	return tx.ID, nil
}
