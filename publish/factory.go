package publish

import (
	"context"

	"github.com/pithecene-io/lighthouse/arweave"
)

// TransactionFactory builds unsigned transactions for blobs and manifests.
type TransactionFactory struct {
	net    Network
	wallet *arweave.Wallet
}

// NewTransactionFactory returns a factory creating transactions owned by wallet.
func NewTransactionFactory(net Network, wallet *arweave.Wallet) *TransactionFactory {
	return &TransactionFactory{net: net, wallet: wallet}
}

// ForBlob wraps data with its content tags.
func (f *TransactionFactory) ForBlob(ctx context.Context, data []byte, contentType string) (*arweave.Transaction, error) {
	return f.build(ctx, TypeFile, data, ContentTags(data, contentType))
}

// ForManifest wraps the encoded manifest with the manifest tags.
func (f *TransactionFactory) ForManifest(ctx context.Context, m *Manifest) (*arweave.Transaction, error) {
	data, err := m.Bytes()
	if err != nil {
		return nil, &TransactionBuildError{Kind: TypeManifest, Err: err}
	}
	return f.build(ctx, TypeManifest, data, ManifestTags())
}

func (f *TransactionFactory) build(ctx context.Context, kind string, data []byte, tags []arweave.Tag) (*arweave.Transaction, error) {
	tx, err := f.net.CreateTransaction(ctx, data, f.wallet)
	if err != nil {
		return nil, &TransactionBuildError{Kind: kind, Err: err}
	}
	for _, t := range tags {
		tx.AddTag(t.Name, t.Value)
	}
	return tx, nil
}
