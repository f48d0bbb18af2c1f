package report

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lighthouse/metrics"
	"github.com/pithecene-io/lighthouse/publish"
	"github.com/pithecene-io/lighthouse/runlog"
)

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// failingStore is a lode.Store whose writes fail with putErr.
type failingStore struct {
	putErr   error
	putCalls int
}

func (s *failingStore) Put(context.Context, string, io.Reader) error {
	s.putCalls++
	return s.putErr
}

func (s *failingStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not found")
}

func (s *failingStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (s *failingStore) List(context.Context, string) ([]string, error) { return nil, nil }

func (s *failingStore) Delete(context.Context, string) error { return nil }

func (s *failingStore) ReadRange(context.Context, string, int64, int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *failingStore) ReaderAt(context.Context, string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*failingStore)(nil)

func testRun() Run {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return Run{
		StartedAt:   started,
		CompletedAt: started.Add(time.Minute),
		Result: &publish.Result{
			Phase:            publish.PhaseDone,
			Assets:           2,
			Images:           publish.PhaseSummary{Uploaded: 2},
			Metadata:         publish.PhaseSummary{Uploaded: 1, Skipped: 1},
			ImagesManifest:   "img-manifest",
			MetadataManifest: "meta-manifest",
			RootURI:          "https://arweave.net/meta-manifest",
			Estimate:         &publish.Estimate{Bytes: 1234, Winston: big.NewInt(5678)},
		},
		Log: []runlog.Entry{
			{Type: runlog.KindError, Message: "Failed to upload image 3.png", Error: "boom"},
			{Type: runlog.KindInfo, Message: "Upload complete"},
		},
		Metrics: metrics.Snapshot{ImagesUploaded: 2, RunID: "run-1"},
	}
}

func TestArchive_WriteAndQuery(t *testing.T) {
	store := lode.NewMemory()
	m := metrics.NewCollector("", "memory", "run-1")
	a, err := New(Config{Collection: "cats", Day: "2026-03-01", RunID: "run-1"}, sharedFactory(store), m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Write(t.Context(), testRun()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s := m.Snapshot(); s.ReportWriteSuccess != 1 || s.ReportWriteFailure != 0 {
		t.Errorf("report counters = %d/%d", s.ReportWriteSuccess, s.ReportWriteFailure)
	}

	ds, err := OpenDataset(sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}
	summary, err := QueryLatest(t.Context(), ds, RecordKindSummary, "cats")
	if err != nil {
		t.Fatalf("QueryLatest: %v", err)
	}
	if summary["outcome"] != OutcomeSuccess || summary["root_uri"] != "https://arweave.net/meta-manifest" {
		t.Errorf("summary = %v", summary)
	}
	if summary["cost_winston"] != "5678" {
		t.Errorf("cost_winston = %v", summary["cost_winston"])
	}
	if summary["run_id"] != "run-1" || summary["day"] != "2026-03-01" {
		t.Errorf("partition fields = %v", summary)
	}

	mrec, err := QueryLatest(t.Context(), ds, RecordKindMetrics, "")
	if err != nil {
		t.Fatalf("QueryLatest metrics: %v", err)
	}
	if mrec["images_uploaded"] != float64(2) {
		t.Errorf("images_uploaded = %v (%T)", mrec["images_uploaded"], mrec["images_uploaded"])
	}

	logRec, err := QueryLatest(t.Context(), ds, RecordKindLog, "cats")
	if err != nil {
		t.Fatalf("QueryLatest log: %v", err)
	}
	if logRec["type"] != "error" || logRec["error"] != "boom" {
		t.Errorf("log record = %v", logRec)
	}
}

func TestQueryLatest_PicksNewestRun(t *testing.T) {
	store := lode.NewMemory()
	for _, runID := range []string{"run-1", "run-2"} {
		a, err := New(Config{Collection: "cats", Day: "2026-03-01", RunID: runID}, sharedFactory(store), nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Write(t.Context(), testRun()); err != nil {
			t.Fatal(err)
		}
	}
	ds, err := OpenDataset(sharedFactory(store))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := QueryLatest(t.Context(), ds, RecordKindSummary, "cats")
	if err != nil {
		t.Fatal(err)
	}
	if rec["run_id"] != "run-2" {
		t.Errorf("run_id = %v, want run-2", rec["run_id"])
	}
}

func TestQueryLatest_NoRecords(t *testing.T) {
	ds, err := OpenDataset(lode.NewMemoryFactory())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := QueryLatest(t.Context(), ds, RecordKindSummary, "cats"); !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords", err)
	}

	store := lode.NewMemory()
	a, err := New(Config{Collection: "dogs", Day: "2026-03-01", RunID: "r"}, sharedFactory(store), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Write(t.Context(), testRun()); err != nil {
		t.Fatal(err)
	}
	if ds, err = OpenDataset(sharedFactory(store)); err != nil {
		t.Fatal(err)
	}
	if _, err := QueryLatest(t.Context(), ds, RecordKindSummary, "cats"); !errors.Is(err, ErrNoRecords) {
		t.Errorf("other collection: err = %v, want ErrNoRecords", err)
	}
}

func TestArchive_WriteFailureClassified(t *testing.T) {
	store := &failingStore{putErr: errors.New("write /data/lighthouse/part.jsonl: no space left on device")}
	m := metrics.NewCollector("", "fs", "run-1")
	a, err := New(Config{Collection: "cats", Day: "2026-03-01", RunID: "run-1"}, sharedFactory(store), m)
	if err != nil {
		t.Fatal(err)
	}

	err = a.Write(t.Context(), testRun())
	if !errors.Is(err, ErrDiskFull) {
		t.Fatalf("err = %v, want ErrDiskFull", err)
	}
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "write" {
		t.Errorf("err = %#v", err)
	}
	if store.putCalls == 0 {
		t.Error("write was not attempted")
	}
	if m.Snapshot().ReportWriteFailure != 1 {
		t.Errorf("ReportWriteFailure = %d", m.Snapshot().ReportWriteFailure)
	}
}

func TestNew_RequiresRunIdentity(t *testing.T) {
	if _, err := New(Config{Collection: "c"}, lode.NewMemoryFactory(), nil); err == nil {
		t.Error("expected error without run id and day")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{publish.ErrDeclined, OutcomeDeclined},
		{&publish.IncompletePhaseError{Phase: publish.PhaseUploadingImages}, OutcomeIncomplete},
		{&publish.FatalRetryExhaustedError{Item: "x"}, OutcomeFailed},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPartitionValue(t *testing.T) {
	tests := map[string]string{
		"cats":         "cats",
		"/home/u/cats": "home_u_cats",
		"a=b":          "a_b",
		"":             "default",
	}
	for in, want := range tests {
		if got := partitionValue(in); got != want {
			t.Errorf("partitionValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	if got := DeriveDay(time.Date(2026, 3, 2, 5, 0, 0, 0, loc)); got != "2026-03-01" {
		t.Errorf("DeriveDay = %q", got)
	}
}
