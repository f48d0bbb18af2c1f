package publish

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/types"
)

// placeholderManifestID stands in for an images manifest that has not
// been published yet. Transaction ids are always 43 characters, so the
// rewritten metadata has its final size.
var placeholderManifestID = strings.Repeat("x", 43)

// Estimate is a priced upload delta.
type Estimate struct {
	// Bytes is the total size of pending images and metadata documents.
	Bytes           int64
	PendingImages   int
	PendingMetadata int
	// Winston is the quoted cost in the smallest network unit.
	Winston *big.Int
	// AR is Winston formatted in display units.
	AR string
}

// ImageReference returns the URL a metadata document points at once the
// images manifest is published. Each segment of imageName is
// path-escaped; the manifest itself keys on the raw name.
func ImageReference(gateway, manifestID, imageName string) string {
	segs := strings.Split(imageName, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return gateway + "/" + manifestID + "/" + strings.Join(segs, "/")
}

// EstimateCost prices the items of list that are not yet in the cache.
// Each cached image or metadata document contributes nothing; an image
// shared by several assets is counted once.
func EstimateCost(ctx context.Context, net Network, store assets.Store, list []types.Asset, c *cache.Store, gateway string) (*Estimate, error) {
	manifestID := c.Manifest(cache.Images)
	if manifestID == "" {
		manifestID = placeholderManifestID
	}

	est := &Estimate{}
	seen := make(map[string]bool)
	for _, a := range list {
		if !c.Has(cache.Images, a.ImageName) && !seen[a.ImageName] {
			seen[a.ImageName] = true
			size, err := store.Size(a.ImageName)
			if err != nil {
				return nil, fmt.Errorf("size of %s: %w", a.ImageName, err)
			}
			est.Bytes += size
			est.PendingImages++
		}
		if !c.Has(cache.Metadata, a.Name) {
			doc, err := rewriteMetadata(store, a, ImageReference(gateway, manifestID, a.ImageName))
			if err != nil {
				return nil, err
			}
			est.Bytes += int64(len(doc))
			est.PendingMetadata++
		}
	}

	price, err := net.Price(ctx, est.Bytes)
	if err != nil {
		return nil, fmt.Errorf("fetch price for %d bytes: %w", est.Bytes, err)
	}
	est.Winston = price
	est.AR = arweave.WinstonToAR(price)
	return est, nil
}

// CheckBalance fails with *InsufficientBalanceError when the wallet's
// balance is strictly below cost.
func CheckBalance(ctx context.Context, net Network, w *arweave.Wallet, cost *big.Int) error {
	addr, err := net.Address(w)
	if err != nil {
		return fmt.Errorf("wallet address: %w", err)
	}
	balance, err := net.Balance(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch balance of %s: %w", addr, err)
	}
	if balance.Cmp(cost) < 0 {
		return &InsufficientBalanceError{Address: addr, Balance: balance, Cost: cost}
	}
	return nil
}

// rewriteMetadata returns the document for a with its image reference
// replaced by imageRef.
func rewriteMetadata(store assets.Store, a types.Asset, imageRef string) ([]byte, error) {
	raw, err := store.ReadFile(a.MetadataFile())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.MetadataFile(), err)
	}
	doc, err := assets.RewriteImage(raw, imageRef)
	if err != nil {
		return nil, fmt.Errorf("rewrite %s: %w", a.MetadataFile(), err)
	}
	return doc, nil
}
