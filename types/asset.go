// Package types defines core domain types shared across lighthouse packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// Asset is one metadata/image pair discovered in the assets directory.
// Assets are discovered once per invocation and never mutated afterwards.
type Asset struct {
	// Name is the metadata file stem ("1" for 1.json). Unique per collection.
	Name string `json:"name"`
	// ImageName is the image reference exactly as written in the metadata
	// document, relative to the assets directory. It doubles as the path
	// of the image inside the images manifest.
	ImageName string `json:"image_name"`
	// ImagePath is the image location on disk.
	ImagePath string `json:"image_path"`
	// MetadataPath is the metadata document location on disk.
	MetadataPath string `json:"metadata_path"`
	// ContentType is resolved from the image file extension.
	ContentType string `json:"content_type"`
}

// MetadataFile returns the metadata file name (stem + ".json").
func (a Asset) MetadataFile() string {
	return a.Name + ".json"
}
