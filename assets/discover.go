// Package assets enumerates and validates a collection directory of
// paired metadata documents and images.
//
// Every "<name>.json" file in the root is a metadata document whose
// "image" field names an image file relative to the same root.
package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	// Decoders registered for header checks.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pithecene-io/lighthouse/types"
)

// Options controls Discover.
type Options struct {
	// CollectAll reports every invalid file instead of stopping at the first.
	CollectAll bool
	// CheckImages decodes image headers for formats with a registered
	// decoder and reports unreadable images.
	CheckImages bool
}

// Problem describes one invalid metadata file.
type Problem struct {
	File   string `json:"file" yaml:"file"`
	Reason string `json:"reason" yaml:"reason"`
}

func (p Problem) String() string {
	return p.File + ": " + p.Reason
}

// ValidationError reports invalid assets. No work is done when it is returned.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid assets"
	case 1:
		return "invalid asset " + e.Problems[0].String()
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%d invalid assets: %s", len(e.Problems), strings.Join(parts, "; "))
}

// ImageField returns the image reference of a metadata document, or ""
// when the field is absent or null. The document must be a single JSON
// object; a repeated key resolves to its first occurrence.
func ImageField(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.New("malformed JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return "", errors.New("metadata must be a JSON object")
	}
	switch img := doc.Get("image"); img.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return img.String(), nil
	}
	return "", errors.New("image field must be a string")
}

// RewriteImage returns the compact document with its image field set to
// ref. Other fields keep their order and encoding; the field is appended
// when the document has none.
func RewriteImage(data []byte, ref string) ([]byte, error) {
	if _, err := ImageField(data); err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes(data, "image", ref)
	if err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Discover lists and validates every asset in store, sorted by metadata
// file name. It returns a *ValidationError for missing or unreadable
// image references and malformed metadata.
func Discover(store Store, opts Options) ([]types.Asset, error) {
	files, err := store.ListMetadataFiles()
	if err != nil {
		return nil, err
	}

	var (
		found    []types.Asset
		problems []Problem
	)
	for _, file := range files {
		asset, reason, err := inspect(store, file, opts)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			problems = append(problems, Problem{File: file, Reason: reason})
			if !opts.CollectAll {
				break
			}
			continue
		}
		found = append(found, asset)
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return found, nil
}

// inspect validates one metadata file. A non-empty reason marks the
// asset invalid; err is reserved for store failures.
func inspect(store Store, file string, opts Options) (types.Asset, string, error) {
	data, err := store.ReadFile(file)
	if err != nil {
		return types.Asset{}, "", fmt.Errorf("read %s: %w", file, err)
	}
	imageName, err := ImageField(data)
	if err != nil {
		return types.Asset{}, "invalid metadata file: " + err.Error(), nil
	}
	if imageName == "" {
		return types.Asset{}, "image field not found", nil
	}
	if !insideRoot(imageName) {
		return types.Asset{}, fmt.Sprintf("image %q is outside the assets directory", imageName), nil
	}
	ok, err := store.FileExists(imageName)
	if err != nil {
		return types.Asset{}, "", fmt.Errorf("stat %s: %w", imageName, err)
	}
	if !ok {
		return types.Asset{}, fmt.Sprintf("image %q not found", imageName), nil
	}
	if opts.CheckImages {
		if reason := checkImage(store, imageName); reason != "" {
			return types.Asset{}, reason, nil
		}
	}

	return types.Asset{
		Name:         strings.TrimSuffix(file, ".json"),
		ImageName:    imageName,
		ImagePath:    store.Path(imageName),
		MetadataPath: store.Path(file),
		ContentType:  ContentTypeOf(imageName),
	}, "", nil
}

// checkImage decodes the image header when a decoder is registered for
// its format. Formats without a decoder (svg, avif, ico) pass unchecked.
func checkImage(store Store, name string) string {
	switch ContentTypeOf(name) {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/tiff":
	default:
		return ""
	}
	data, err := store.ReadFile(name)
	if err != nil {
		return fmt.Sprintf("image %q unreadable: %v", name, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Sprintf("image %q is not a valid %s: %v", name, ContentTypeOf(name), err)
	}
	return ""
}
