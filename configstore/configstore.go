// Package configstore reads and updates the project's config.json, the
// file the contract tooling reads its settings from.
//
// The file may contain comments and trailing commas. Updates rewrite the
// whole file as plain JSON with 4-space indentation, keeping key order;
// comments are not preserved.
package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/moby/sys/atomicwriter"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// DefaultFile is the config file used when none is configured.
const DefaultFile = "config.json"

// TokenURIField is the field holding the collection's metadata root.
const TokenURIField = "token_uri"

// Store reads and writes one config file.
type Store struct {
	path string
}

// New returns a Store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns every field of the config. A missing file yields an empty map.
func (s *Store) Get() (map[string]json.RawMessage, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	gjson.ParseBytes(data).ForEach(func(k, v gjson.Result) bool {
		fields[k.String()] = json.RawMessage(v.Raw)
		return true
	})
	return fields, nil
}

// GetString returns a string field, or "" when absent.
func (s *Store) GetString(field string) (string, error) {
	data, err := s.load()
	if err != nil {
		return "", err
	}
	v := gjson.GetBytes(data, gjson.Escape(field))
	switch v.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return v.String(), nil
	}
	return "", fmt.Errorf("config field %s is not a string", field)
}

// Set stores value under field and rewrites the file, creating it when absent.
func (s *Store) Set(field string, value any) error {
	data, err := s.load()
	if err != nil {
		return err
	}
	data, err = sjson.SetBytes(data, gjson.Escape(field), value)
	if err != nil {
		return fmt.Errorf("encode config field %s: %w", field, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "    "); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := atomicwriter.WriteFile(s.path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

// SetTokenURI records the collection's metadata root.
func (s *Store) SetTokenURI(uri string) error {
	return s.Set(TokenURIField, uri)
}

// load returns the config as plain JSON with comments and trailing
// commas stripped. A missing or blank file reads as an empty object.
func (s *Store) load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}
	data = bytes.TrimSpace(jsonc.ToJSON(data))
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("config %s: expected a JSON object", s.path)
	}
	return data, nil
}
