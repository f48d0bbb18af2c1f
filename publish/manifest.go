package publish

import (
	"encoding/json"
	"fmt"

	"github.com/pithecene-io/lighthouse/cache"
)

// Manifest document constants.
const (
	ManifestKind    = "arweave/paths"
	ManifestVersion = "0.1.0"
	ManifestIndex   = "-1"
)

// ManifestEntry maps a path inside the manifest to a transaction.
type ManifestEntry struct {
	TransactionID string
	Path          string
}

// Manifest is a path manifest document.
type Manifest struct {
	Manifest string                  `json:"manifest"`
	Version  string                  `json:"version"`
	Index    ManifestIndexPath       `json:"index"`
	Paths    map[string]ManifestPath `json:"paths"`
}

// ManifestIndexPath is the manifest's index entry.
type ManifestIndexPath struct {
	Path string `json:"path"`
}

// ManifestPath is one entry of the manifest's paths object.
type ManifestPath struct {
	ID string `json:"id"`
}

// BuildManifest builds a manifest from entries. A repeated path keeps the
// last transaction id.
func BuildManifest(entries []ManifestEntry) *Manifest {
	paths := make(map[string]ManifestPath, len(entries))
	for _, e := range entries {
		paths[e.Path] = ManifestPath{ID: e.TransactionID}
	}
	return &Manifest{
		Manifest: ManifestKind,
		Version:  ManifestVersion,
		Index:    ManifestIndexPath{Path: ManifestIndex},
		Paths:    paths,
	}
}

// ManifestEntries converts cache entries into manifest entries, using
// the cache name as the path.
func ManifestEntries(entries []cache.Entry) []ManifestEntry {
	out := make([]ManifestEntry, len(entries))
	for i, e := range entries {
		out[i] = ManifestEntry{TransactionID: e.TxID, Path: e.Name}
	}
	return out
}

// Bytes returns the compact JSON encoding. Paths are emitted in sorted order.
func (m *Manifest) Bytes() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}
