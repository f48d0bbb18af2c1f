package publish

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/types"
)

// Tag names and fixed values attached to published transactions.
const (
	TagContentType    = "Content-Type"
	TagUserAgent      = "User-Agent"
	TagUserAgentVer   = "User-Agent-Version"
	TagType           = "Type"
	TagFileHash       = "File-Hash"
	TypeFile          = "file"
	TypeManifest      = "manifest"
	ManifestMediaType = "application/x.arweave-manifest+json"
	MetadataMediaType = "application/json"
)

// HashContent returns the hex SHA-256 digest of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentTags returns the ordered tag set for a blob upload.
func ContentTags(data []byte, contentType string) []arweave.Tag {
	return []arweave.Tag{
		{Name: TagContentType, Value: contentType},
		{Name: TagUserAgent, Value: types.PublisherName},
		{Name: TagUserAgentVer, Value: types.Version},
		{Name: TagType, Value: TypeFile},
		{Name: TagFileHash, Value: HashContent(data)},
	}
}

// ManifestTags returns the ordered tag set for a manifest upload.
func ManifestTags() []arweave.Tag {
	return []arweave.Tag{
		{Name: TagType, Value: TypeManifest},
		{Name: TagContentType, Value: ManifestMediaType},
	}
}
