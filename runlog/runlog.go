// Package runlog records the user-facing log batch of one publish run
// and flushes it to logs.json.
//
// A run appends its batch as one element when the file already holds a
// JSON array; otherwise the file is replaced with the batch itself, a
// flat array of entries.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/moby/sys/atomicwriter"
)

// DefaultFile is the log file used when none is configured.
const DefaultFile = "logs.json"

// Kind classifies an entry.
type Kind string

// Entry kinds.
const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
	KindFatal Kind = "fatal"
)

// Entry is one log record.
type Entry struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Log is an ordered, append-only batch owned by a single run.
type Log struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	flushed bool
}

// New returns an empty batch that flushes to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Info appends an info entry.
func (l *Log) Info(message string) {
	l.add(Entry{Type: KindInfo, Message: message})
}

// Error appends an error entry with its cause.
func (l *Log) Error(message string, cause error) {
	l.add(Entry{Type: KindError, Message: message, Error: errString(cause)})
}

// Fatal appends a fatal entry with its cause.
func (l *Log) Fatal(message string, cause error) {
	l.add(Entry{Type: KindFatal, Message: message, Error: errString(cause)})
}

func (l *Log) add(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Entries returns a copy of the batch.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns the number of entries of kind k.
func (l *Log) Count(k Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Type == k {
			n++
		}
	}
	return n
}

// Flush writes the batch to the log file. Only the first call writes;
// later calls are no-ops so that abort paths and normal completion can
// both flush without duplicating the batch.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.flushed {
		return nil
	}

	existing, isArray, err := readArray(l.path)
	if err != nil {
		return err
	}
	batch := l.entries
	if batch == nil {
		batch = []Entry{}
	}

	var doc any = batch
	if isArray {
		raw, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("encode log batch: %w", err)
		}
		doc = append(existing, raw)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode log file: %w", err)
	}
	if err := atomicwriter.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write log file %s: %w", l.path, err)
	}
	l.flushed = true
	return nil
}

// readArray returns the elements of the log file and whether it holds a
// JSON array at all. A missing or unparsable file is not an array.
func readArray(path string) ([]json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read log file %s: %w", path, err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil || elems == nil {
		return nil, false, nil
	}
	return elems, true, nil
}
