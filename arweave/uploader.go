package arweave

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/everFinance/goar/utils"
)

// maxChunksInBody is the largest chunk count posted inline with the
// transaction header instead of through /chunk.
const maxChunksInBody = 1

// ChunkUploader uploads a signed transaction one step at a time.
type ChunkUploader interface {
	// UploadChunk performs the next upload step: the transaction header
	// first, then one data chunk per call.
	UploadChunk(ctx context.Context) error
	// IsComplete reports whether every step has been acknowledged.
	IsComplete() bool
}

// Uploader is the gateway-backed ChunkUploader. It steps through goar's
// submit calls itself rather than using goar's TransactionUploader, which
// retries and sleeps internally and hides the HTTP status; the publish
// pipeline owns the retry policy and needs every 429.
type Uploader struct {
	client     *Client
	tx         *Transaction
	posted     bool
	chunkIndex int
	lastStatus int
}

func newUploader(c *Client, tx *Transaction) *Uploader {
	return &Uploader{client: c, tx: tx}
}

// IsComplete reports whether the header and all chunks were accepted.
func (u *Uploader) IsComplete() bool {
	return u.posted && u.chunkIndex >= u.tx.ChunkCount()
}

// LastResponseStatus returns the HTTP status of the last failed step,
// or 0 if no step has failed with a gateway response.
func (u *Uploader) LastResponseStatus() int {
	return u.lastStatus
}

// UploadedChunks returns how many data chunks have been accepted.
func (u *Uploader) UploadedChunks() int {
	return u.chunkIndex
}

// UploadChunk performs the next upload step.
func (u *Uploader) UploadChunk(ctx context.Context) error {
	if u.IsComplete() {
		return errors.New("upload already complete")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !u.posted {
		return u.postTransaction()
	}

	chunk, err := utils.GetChunk(*u.tx.wire(false), u.chunkIndex, u.tx.Data)
	if err != nil {
		return fmt.Errorf("prepare chunk %d: %w", u.chunkIndex, err)
	}
	body, code, err := u.client.node.SubmitChunks(chunk)
	if err := u.record(checkResponse(http.MethodPost, "/chunk", body, code, err)); err != nil {
		return err
	}
	u.chunkIndex++
	return nil
}

func (u *Uploader) postTransaction() error {
	inBody := u.tx.ChunkCount() <= maxChunksInBody
	body, code, err := u.client.node.SubmitTransaction(u.tx.wire(inBody))
	if err := u.record(checkResponse(http.MethodPost, "/tx", body, code, err)); err != nil {
		return err
	}
	u.posted = true
	if inBody {
		u.chunkIndex = u.tx.ChunkCount()
	}
	return nil
}

func (u *Uploader) record(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		u.lastStatus = statusErr.Code
	}
	return err
}

var _ ChunkUploader = (*Uploader)(nil)
