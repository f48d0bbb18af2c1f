// Package cache is the durable record of what has already been published.
//
// The cache file is the only recovery mechanism across process restarts:
// an entry's presence means the blob is on the network and must never be
// uploaded again. Every mutation is persisted immediately with an atomic
// whole-file replace, so the latest call always wins and a crash never
// leaves a truncated file behind.
//
// The store assumes a single writer. Running two publishers against the
// same working directory is unsupported and will lose entries.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/moby/sys/atomicwriter"
)

// DefaultFile is the cache file name used when none is configured.
const DefaultFile = "cache.json"

// List names one of the two cache lists.
type List string

const (
	// Images holds one entry per uploaded image, keyed by image name.
	Images List = "images"
	// Metadata holds one entry per uploaded metadata document, keyed by asset name.
	Metadata List = "metadata"
)

// Entry records one published blob.
type Entry struct {
	Name string `json:"name"`
	TxID string `json:"txid"`
}

// Cache is the persisted state.
type Cache struct {
	Images           []Entry `json:"images"`
	Metadata         []Entry `json:"metadata"`
	ImagesManifest   string  `json:"imagesManifest"`
	MetadataManifest string  `json:"metadataManifest"`
}

// InvalidCacheError reports a cache file whose shape does not match the schema.
// The pipeline aborts on it instead of discarding state.
type InvalidCacheError struct {
	Path   string
	Reason string
}

func (e *InvalidCacheError) Error() string {
	return fmt.Sprintf("invalid cache file %s: %s", e.Path, e.Reason)
}

// Store is the file-backed cache.
type Store struct {
	path   string
	state  Cache
	index  map[List]map[string]int
	writes int
}

// Open loads the cache at path, or starts empty when the file does not exist.
func Open(path string) (*Store, error) {
	s := New(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	state, err := Decode(path, data)
	if err != nil {
		return nil, err
	}
	s.state = *state
	s.reindex()
	return s, nil
}

// New returns an empty cache that persists to path.
func New(path string) *Store {
	s := &Store{
		path:  path,
		state: Cache{Images: []Entry{}, Metadata: []Entry{}},
	}
	s.reindex()
	return s
}

// Exists reports whether a cache file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Decode validates and parses a cache document.
func Decode(path string, data []byte) (*Cache, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidCacheError{Path: path, Reason: "not a JSON object"}
	}

	var c Cache
	for _, field := range []struct {
		key string
		dst *[]Entry
	}{
		{"images", &c.Images},
		{"metadata", &c.Metadata},
	} {
		entries, err := decodeEntries(raw[field.key])
		if err != nil {
			return nil, &InvalidCacheError{Path: path, Reason: fmt.Sprintf("%s: %v", field.key, err)}
		}
		*field.dst = entries
	}

	for _, field := range []struct {
		key string
		dst *string
	}{
		{"imagesManifest", &c.ImagesManifest},
		{"metadataManifest", &c.MetadataManifest},
	} {
		if err := decodeString(raw[field.key], field.dst); err != nil {
			return nil, &InvalidCacheError{Path: path, Reason: fmt.Sprintf("%s: %v", field.key, err)}
		}
	}

	return &c, nil
}

func decodeEntries(raw json.RawMessage) ([]Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("must be a list")
	}
	var entries []Entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("malformed entry: %w", err)
	}
	for i, e := range entries {
		if e.Name == "" || e.TxID == "" {
			return nil, fmt.Errorf("entry %d must have a name and a txid", i)
		}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return errors.New("must be a string")
	}
	return json.Unmarshal(trimmed, dst)
}

// Path returns the file the cache persists to.
func (s *Store) Path() string {
	return s.path
}

// Has reports whether name has already been published in list.
func (s *Store) Has(list List, name string) bool {
	_, ok := s.index[list][name]
	return ok
}

// Lookup returns the entry for name in list.
func (s *Store) Lookup(list List, name string) (Entry, bool) {
	i, ok := s.index[list][name]
	if !ok {
		return Entry{}, false
	}
	return s.entries(list)[i], true
}

// Entries returns a copy of list in insertion order.
func (s *Store) Entries(list List) []Entry {
	src := s.entries(list)
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Manifest returns the manifest id recorded for list, or "".
func (s *Store) Manifest(list List) string {
	switch list {
	case Images:
		return s.state.ImagesManifest
	case Metadata:
		return s.state.MetadataManifest
	default:
		return ""
	}
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Cache {
	return Cache{
		Images:           s.Entries(Images),
		Metadata:         s.Entries(Metadata),
		ImagesManifest:   s.state.ImagesManifest,
		MetadataManifest: s.state.MetadataManifest,
	}
}

// Writes returns how many times the cache has been persisted.
func (s *Store) Writes() int {
	return s.writes
}

// Record appends entry to list and persists immediately.
// Recording a name that is already present replaces its txid.
func (s *Store) Record(list List, entry Entry) error {
	if entry.Name == "" || entry.TxID == "" {
		return errors.New("cache entry requires a name and a txid")
	}
	dst, err := s.listPtr(list)
	if err != nil {
		return err
	}
	if i, ok := s.index[list][entry.Name]; ok {
		(*dst)[i] = entry
	} else {
		*dst = append(*dst, entry)
		s.index[list][entry.Name] = len(*dst) - 1
	}
	return s.Save()
}

// SetManifest records the manifest id for list and persists immediately.
func (s *Store) SetManifest(list List, id string) error {
	switch list {
	case Images:
		s.state.ImagesManifest = id
	case Metadata:
		s.state.MetadataManifest = id
	default:
		return fmt.Errorf("unknown cache list %q", list)
	}
	return s.Save()
}

// Save writes the whole cache to disk, replacing the previous file atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", s.path, err)
	}
	s.writes++
	return nil
}

func (s *Store) entries(list List) []Entry {
	switch list {
	case Images:
		return s.state.Images
	case Metadata:
		return s.state.Metadata
	default:
		return nil
	}
}

func (s *Store) listPtr(list List) (*[]Entry, error) {
	switch list {
	case Images:
		return &s.state.Images, nil
	case Metadata:
		return &s.state.Metadata, nil
	default:
		return nil, fmt.Errorf("unknown cache list %q", list)
	}
}

// reindex rebuilds the name lookup. Duplicate names keep the last entry.
func (s *Store) reindex() {
	s.index = map[List]map[string]int{
		Images:   make(map[string]int, len(s.state.Images)),
		Metadata: make(map[string]int, len(s.state.Metadata)),
	}
	for i, e := range s.state.Images {
		s.index[Images][e.Name] = i
	}
	for i, e := range s.state.Metadata {
		s.index[Metadata][e.Name] = i
	}
}
