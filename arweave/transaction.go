package arweave

import (
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/everFinance/goar/types"
	"github.com/everFinance/goar/utils"
)

// TransactionFormat is the only transaction format produced here.
const TransactionFormat = 2

// Tag is a name/value pair attached to a transaction, unencoded.
type Tag = types.Tag

// Transaction is an Arweave format-2 transaction.
// Tags and Data hold raw (decoded) values; goar encodes them for signing
// and for the wire.
type Transaction struct {
	Format    int
	ID        string
	LastTx    string
	Owner     string
	Tags      []Tag
	Target    string
	Quantity  string
	Data      []byte
	DataSize  string
	DataRoot  string
	Reward    string
	Signature string

	chunks *types.Chunks
}

// NewTransaction builds an unsigned transaction carrying data for owner.
// The anchor and reward are supplied by the caller (see Client.CreateTransaction).
func NewTransaction(data []byte, owner, anchor string, reward *big.Int) *Transaction {
	tx := &Transaction{
		Format:   TransactionFormat,
		LastTx:   anchor,
		Owner:    owner,
		Quantity: "0",
		Data:     data,
		DataSize: strconv.Itoa(len(data)),
		Reward:   reward.String(),
	}
	gt := &types.Transaction{DataSize: tx.DataSize}
	utils.PrepareChunks(gt, data, len(data))
	tx.chunks = gt.Chunks
	tx.DataRoot = gt.DataRoot
	return tx
}

// AddTag appends a tag. Tags must be added before signing.
func (tx *Transaction) AddTag(name, value string) {
	tx.Tags = append(tx.Tags, Tag{Name: name, Value: value})
}

// TagValue returns the value of the first tag named name.
func (tx *Transaction) TagValue(name string) (string, bool) {
	for _, t := range tx.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// ChunkCount returns the number of data chunks the transaction uploads.
func (tx *Transaction) ChunkCount() int {
	if tx.chunks == nil {
		return 0
	}
	return len(tx.chunks.Chunks)
}

// Sign signs the transaction with w and derives its ID from the signature.
func (tx *Transaction) Sign(w *Wallet) error {
	if tx.Owner != w.Owner() {
		return errors.New("transaction owner does not match signing wallet")
	}
	gt := tx.wire(true)
	if err := w.signer.SignTx(gt); err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	tx.ID = gt.ID
	tx.Signature = gt.Signature
	return nil
}

// Verify checks the signature and ID against the owner's public key.
func (tx *Transaction) Verify() error {
	gt := tx.wire(true)
	sig, err := utils.Base64Decode(tx.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	id := sha256.Sum256(sig)
	if utils.Base64Encode(id[:]) != tx.ID {
		return errors.New("transaction id does not match signature")
	}
	owner, err := utils.Base64Decode(tx.Owner)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	data, err := utils.GetSignatureData(gt)
	if err != nil {
		return err
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(owner), E: 65537}
	return utils.Verify(data, pub, sig)
}

// wire converts tx to goar's encoded form. Tag names and values are
// base64url encoded; data is omitted for headers whose chunks go
// through /chunk.
func (tx *Transaction) wire(includeData bool) *types.Transaction {
	tags := make([]types.Tag, 0, len(tx.Tags))
	for _, t := range tx.Tags {
		tags = append(tags, types.Tag{
			Name:  utils.Base64Encode([]byte(t.Name)),
			Value: utils.Base64Encode([]byte(t.Value)),
		})
	}
	gt := &types.Transaction{
		Format:    tx.Format,
		ID:        tx.ID,
		LastTx:    tx.LastTx,
		Owner:     tx.Owner,
		Tags:      tags,
		Target:    tx.Target,
		Quantity:  tx.Quantity,
		DataSize:  tx.DataSize,
		DataRoot:  tx.DataRoot,
		Reward:    tx.Reward,
		Signature: tx.Signature,
		Chunks:    tx.chunks,
	}
	if includeData {
		gt.Data = utils.Base64Encode(tx.Data)
	}
	return gt
}
