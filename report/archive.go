// Package report archives each publish run into a lode dataset: the log
// batch, a run summary and the metrics snapshot.
//
// Records are partitioned with Hive layout
// collection/day/run_id/record_kind and encoded as JSON lines, on the
// local filesystem or in S3.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lighthouse/metrics"
	"github.com/pithecene-io/lighthouse/publish"
	"github.com/pithecene-io/lighthouse/runlog"
	"github.com/pithecene-io/lighthouse/types"
)

// DatasetID is the lode dataset all runs are written to.
const DatasetID = "lighthouse"

// Record kinds.
const (
	RecordKindLog     = "log"
	RecordKindSummary = "summary"
	RecordKindMetrics = "metrics"
)

// Run outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeIncomplete = "incomplete"
	OutcomeDeclined   = "declined"
	OutcomeFailed     = "failed"
)

var partitionKeys = []string{"collection", "day", "run_id", "record_kind"}

// DeriveDay computes the partition day from the run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds the partition values of one run.
type Config struct {
	Collection string
	Day        string
	RunID      string
}

// Run is everything archived for one invocation.
type Run struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Result      *publish.Result
	Err         error
	Log         []runlog.Entry
	Metrics     metrics.Snapshot
}

// Outcome classifies err into a run outcome.
func Outcome(err error) string {
	var incomplete *publish.IncompletePhaseError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, publish.ErrDeclined):
		return OutcomeDeclined
	case errors.As(err, &incomplete):
		return OutcomeIncomplete
	default:
		return OutcomeFailed
	}
}

// Archive writes run records to a dataset.
type Archive struct {
	dataset lode.Dataset
	config  Config
	metrics *metrics.Collector
}

// OpenDataset opens the run dataset with the archive's layout and codec.
func OpenDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(DatasetID),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, wrapError("init", DatasetID, err)
	}
	return ds, nil
}

// New creates an archive over factory. Use lode.NewMemoryFactory() in tests.
func New(cfg Config, factory lode.StoreFactory, m *metrics.Collector) (*Archive, error) {
	if cfg.RunID == "" || cfg.Day == "" {
		return nil, errors.New("report requires a run id and a day")
	}
	cfg.Collection = partitionValue(cfg.Collection)
	ds, err := OpenDataset(factory)
	if err != nil {
		return nil, err
	}
	return &Archive{dataset: ds, config: cfg, metrics: m}, nil
}

// NewFS creates an archive rooted at a local directory.
func NewFS(cfg Config, root string, m *metrics.Collector) (*Archive, error) {
	return New(cfg, lode.NewFSFactory(root), m)
}

// Write archives run as one snapshot.
func (a *Archive) Write(ctx context.Context, run Run) error {
	records := make([]any, 0, len(run.Log)+2)
	for i, e := range run.Log {
		r := a.base(RecordKindLog)
		r["seq"] = i
		r["type"] = string(e.Type)
		r["message"] = e.Message
		if e.Error != "" {
			r["error"] = e.Error
		}
		records = append(records, r)
	}
	records = append(records, a.summary(run))

	m, err := metricsRecord(run.Metrics)
	if err != nil {
		return err
	}
	for k, v := range a.base(RecordKindMetrics) {
		m[k] = v
	}
	records = append(records, m)

	if _, err := a.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		a.metrics.IncReportWriteFailure()
		return wrapError("write", DatasetID, err)
	}
	a.metrics.IncReportWriteSuccess()
	return nil
}

func (a *Archive) base(kind string) map[string]any {
	return map[string]any{
		"record_kind":        kind,
		"collection":         a.config.Collection,
		"day":                a.config.Day,
		"run_id":             a.config.RunID,
		"lighthouse_version": types.Version,
	}
}

func (a *Archive) summary(run Run) map[string]any {
	r := a.base(RecordKindSummary)
	r["outcome"] = Outcome(run.Err)
	r["started_at"] = run.StartedAt.UTC().Format(time.RFC3339Nano)
	r["completed_at"] = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	if run.Err != nil {
		r["error"] = run.Err.Error()
	}
	res := run.Result
	if res == nil {
		return r
	}
	r["phase"] = string(res.Phase)
	r["assets"] = res.Assets
	r["images_uploaded"] = res.Images.Uploaded
	r["images_skipped"] = res.Images.Skipped
	r["images_failed"] = len(res.Images.Failed)
	r["metadata_uploaded"] = res.Metadata.Uploaded
	r["metadata_skipped"] = res.Metadata.Skipped
	r["metadata_failed"] = len(res.Metadata.Failed)
	r["images_manifest"] = res.ImagesManifest
	r["metadata_manifest"] = res.MetadataManifest
	r["root_uri"] = res.RootURI
	if res.Estimate != nil {
		r["cost_bytes"] = res.Estimate.Bytes
		r["cost_winston"] = res.Estimate.Winston.String()
	}
	return r
}

func metricsRecord(s metrics.Snapshot) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	return m, nil
}

// partitionValue makes s safe as a single Hive path segment.
func partitionValue(s string) string {
	s = strings.Trim(s, "/")
	if s == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "=", "_").Replace(s)
}
