package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Images) != 0 || len(snap.Metadata) != 0 || snap.ImagesManifest != "" || snap.MetadataManifest != "" {
		t.Errorf("expected empty cache, got %+v", snap)
	}
	if Exists(path) {
		t.Error("Open must not create the file")
	}
}

func TestOpen_ValidFile(t *testing.T) {
	path := writeFile(t, `{
    "images": [{"name": "1.png", "txid": "tx1"}],
    "metadata": [{"name": "1", "txid": "tx2"}],
    "imagesManifest": "im",
    "metadataManifest": ""
}`)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.Has(Images, "1.png") || !s.Has(Metadata, "1") {
		t.Error("expected loaded entries to be present")
	}
	if s.Has(Images, "1") {
		t.Error("lists must be independent")
	}
	if s.Manifest(Images) != "im" || s.Manifest(Metadata) != "" {
		t.Errorf("manifests = %q/%q", s.Manifest(Images), s.Manifest(Metadata))
	}
	e, ok := s.Lookup(Metadata, "1")
	if !ok || e.TxID != "tx2" {
		t.Errorf("Lookup = %+v, %v", e, ok)
	}
}

func TestOpen_InvalidShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"not json", `nope`, "not a JSON object"},
		{"array root", `[]`, "not a JSON object"},
		{"images not list", `{"images": {}, "metadata": [], "imagesManifest": "", "metadataManifest": ""}`, "images"},
		{"metadata null", `{"images": [], "metadata": null, "imagesManifest": "", "metadataManifest": ""}`, "metadata"},
		{"missing manifest", `{"images": [], "metadata": []}`, "imagesManifest"},
		{"manifest number", `{"images": [], "metadata": [], "imagesManifest": "", "metadataManifest": 3}`, "metadataManifest"},
		{"entry without txid", `{"images": [{"name": "a"}], "metadata": [], "imagesManifest": "", "metadataManifest": ""}`, "images"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeFile(t, tt.content))
			var invalid *InvalidCacheError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidCacheError, got %v", err)
			}
			if !strings.Contains(invalid.Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", invalid.Reason, tt.reason)
			}
		})
	}
}

func TestRecord_PersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Record(Images, Entry{Name: "a.png", TxID: "txA"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(Images, Entry{Name: "b.png", TxID: "txB"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reloaded.Entries(Images)
	if len(got) != 2 || got[0].Name != "a.png" || got[1].TxID != "txB" {
		t.Errorf("reloaded entries = %+v", got)
	}
}

func TestRecord_SameNameReplaces(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), DefaultFile))
	if err := s.Record(Metadata, Entry{Name: "1", TxID: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(Metadata, Entry{Name: "1", TxID: "new"}); err != nil {
		t.Fatal(err)
	}

	entries := s.Entries(Metadata)
	if len(entries) != 1 || entries[0].TxID != "new" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRecord_RejectsEmptyEntry(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), DefaultFile))
	if err := s.Record(Images, Entry{Name: "a"}); err == nil {
		t.Fatal("expected error for entry without txid")
	}
	if err := s.Record(List("bogus"), Entry{Name: "a", TxID: "b"}); err == nil {
		t.Fatal("expected error for unknown list")
	}
}

func TestSetManifest_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	s := New(path)
	if err := s.SetManifest(Images, "imgManifest"); err != nil {
		t.Fatalf("SetManifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"images", "metadata", "imagesManifest", "metadataManifest"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("persisted file missing key %q", key)
		}
	}
	if raw["imagesManifest"] != "imgManifest" {
		t.Errorf("imagesManifest = %v", raw["imagesManifest"])
	}
	if !strings.Contains(string(data), "\n    \"images\"") {
		t.Error("cache file should be indented with four spaces")
	}
	// An empty list must persist as [] so the file reloads.
	if _, err := Open(path); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), DefaultFile))
	if err := s.Record(Images, Entry{Name: "a.png", TxID: "txA"}); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Images[0].TxID = "mutated"
	if e, _ := s.Lookup(Images, "a.png"); e.TxID != "txA" {
		t.Error("Snapshot must not alias internal state")
	}
}
