// Package metrics provides per-run publish counters.
//
// The Collector accumulates counters during a single run and is archived
// with the run report. It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of a run's counters.
type Snapshot struct {
	// Items
	ImagesUploaded   int64 `json:"images_uploaded"`
	ImagesFailed     int64 `json:"images_failed"`
	ImagesSkipped    int64 `json:"images_skipped"`
	MetadataUploaded int64 `json:"metadata_uploaded"`
	MetadataFailed   int64 `json:"metadata_failed"`
	MetadataSkipped  int64 `json:"metadata_skipped"`
	BytesUploaded    int64 `json:"bytes_uploaded"`

	// Rate limiting
	RateLimited     int64 `json:"rate_limited"`
	BackoffWaits    int64 `json:"backoff_waits"`
	BackoffMillis   int64 `json:"backoff_millis"`
	RetryExhausted  int64 `json:"retry_exhausted"`
	ChunksSubmitted int64 `json:"chunks_submitted"`

	// Manifests and local state
	ManifestsPublished int64 `json:"manifests_published"`
	ManifestsFailed    int64 `json:"manifests_failed"`
	CacheWrites        int64 `json:"cache_writes"`

	// Report archive
	ReportWriteSuccess int64 `json:"report_write_success"`
	ReportWriteFailure int64 `json:"report_write_failure"`

	// Dimensions
	Gateway       string `json:"gateway"`
	ReportBackend string `json:"report_backend"`
	RunID         string `json:"run_id"`
}

// Item kinds accepted by the item counters.
const (
	KindImage    = "image"
	KindMetadata = "metadata"
)

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(gateway, reportBackend, runID string) *Collector {
	return &Collector{s: Snapshot{
		Gateway:       gateway,
		ReportBackend: reportBackend,
		RunID:         runID,
	}}
}

func (c *Collector) update(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- Items ---

// IncUploaded records a published item of the given kind and its size.
func (c *Collector) IncUploaded(kind string, bytes int64) {
	c.update(func(s *Snapshot) {
		if kind == KindImage {
			s.ImagesUploaded++
		} else {
			s.MetadataUploaded++
		}
		s.BytesUploaded += bytes
	})
}

// IncFailed records an item that failed without a rate-limit signal.
func (c *Collector) IncFailed(kind string) {
	c.update(func(s *Snapshot) {
		if kind == KindImage {
			s.ImagesFailed++
		} else {
			s.MetadataFailed++
		}
	})
}

// IncSkipped records an item already present in the cache.
func (c *Collector) IncSkipped(kind string) {
	c.update(func(s *Snapshot) {
		if kind == KindImage {
			s.ImagesSkipped++
		} else {
			s.MetadataSkipped++
		}
	})
}

// --- Rate limiting ---

// IncRateLimited records a rate-limited attempt.
func (c *Collector) IncRateLimited() {
	c.update(func(s *Snapshot) { s.RateLimited++ })
}

// AddBackoff records one completed backoff wait.
func (c *Collector) AddBackoff(millis int64) {
	c.update(func(s *Snapshot) {
		s.BackoffWaits++
		s.BackoffMillis += millis
	})
}

// IncRetryExhausted records an item that exhausted its rate-limit retries.
func (c *Collector) IncRetryExhausted() {
	c.update(func(s *Snapshot) { s.RetryExhausted++ })
}

// AddChunks records submitted chunk requests.
func (c *Collector) AddChunks(n int64) {
	c.update(func(s *Snapshot) { s.ChunksSubmitted += n })
}

// --- Manifests and local state ---

// IncManifestPublished records a published manifest.
func (c *Collector) IncManifestPublished() {
	c.update(func(s *Snapshot) { s.ManifestsPublished++ })
}

// IncManifestFailed records a failed manifest publication.
func (c *Collector) IncManifestFailed() {
	c.update(func(s *Snapshot) { s.ManifestsFailed++ })
}

// SetCacheWrites records the number of cache file writes for the run.
func (c *Collector) SetCacheWrites(n int64) {
	c.update(func(s *Snapshot) { s.CacheWrites = n })
}

// --- Report archive ---
// Report counters are per-call, not per-record.

// IncReportWriteSuccess records a successful archive write.
func (c *Collector) IncReportWriteSuccess() {
	c.update(func(s *Snapshot) { s.ReportWriteSuccess++ })
}

// IncReportWriteFailure records a failed archive write.
func (c *Collector) IncReportWriteFailure() {
	c.update(func(s *Snapshot) { s.ReportWriteFailure++ })
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
