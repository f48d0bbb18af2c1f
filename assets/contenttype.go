package assets

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is used for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".bmp":   "image/bmp",
	".ico":   "image/vnd.microsoft.icon",
	".tiff":  "image/tiff",
	".tif":   "image/tiff",
	".avif":  "image/avif",
	".apng":  "image/apng",
	".jfif":  "image/jpeg",
	".pjpeg": "image/jpeg",
	".pjp":   "image/jpeg",
}

// ContentTypeOf resolves a MIME type from the file extension of name.
// Matching is case-sensitive, as gateways serve the tag verbatim.
func ContentTypeOf(name string) string {
	if ct, ok := contentTypes[filepath.Ext(name)]; ok {
		return ct
	}
	return DefaultContentType
}

// isJSONFile reports whether name is a metadata document.
func isJSONFile(name string) bool {
	return strings.HasSuffix(name, ".json")
}
