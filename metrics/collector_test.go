package metrics

import (
	"sync"
	"testing"
)

func TestCollector_ItemCounters(t *testing.T) {
	c := NewCollector("https://arweave.net", "fs", "run-001")

	c.IncUploaded(KindImage, 100)
	c.IncUploaded(KindImage, 50)
	c.IncUploaded(KindMetadata, 7)
	c.IncFailed(KindImage)
	c.IncFailed(KindMetadata)
	c.IncFailed(KindMetadata)
	c.IncSkipped(KindImage)
	c.IncSkipped(KindMetadata)

	s := c.Snapshot()

	if s.ImagesUploaded != 2 {
		t.Errorf("ImagesUploaded = %d, want 2", s.ImagesUploaded)
	}
	if s.MetadataUploaded != 1 {
		t.Errorf("MetadataUploaded = %d, want 1", s.MetadataUploaded)
	}
	if s.BytesUploaded != 157 {
		t.Errorf("BytesUploaded = %d, want 157", s.BytesUploaded)
	}
	if s.ImagesFailed != 1 || s.MetadataFailed != 2 {
		t.Errorf("failed = %d/%d, want 1/2", s.ImagesFailed, s.MetadataFailed)
	}
	if s.ImagesSkipped != 1 || s.MetadataSkipped != 1 {
		t.Errorf("skipped = %d/%d, want 1/1", s.ImagesSkipped, s.MetadataSkipped)
	}
}

func TestCollector_RateLimitCounters(t *testing.T) {
	c := NewCollector("", "", "")

	c.IncRateLimited()
	c.IncRateLimited()
	c.AddBackoff(60000)
	c.AddBackoff(120000)
	c.IncRetryExhausted()
	c.AddChunks(4)

	s := c.Snapshot()
	if s.RateLimited != 2 {
		t.Errorf("RateLimited = %d, want 2", s.RateLimited)
	}
	if s.BackoffWaits != 2 || s.BackoffMillis != 180000 {
		t.Errorf("backoff = %d waits / %d ms", s.BackoffWaits, s.BackoffMillis)
	}
	if s.RetryExhausted != 1 {
		t.Errorf("RetryExhausted = %d, want 1", s.RetryExhausted)
	}
	if s.ChunksSubmitted != 4 {
		t.Errorf("ChunksSubmitted = %d, want 4", s.ChunksSubmitted)
	}
}

func TestCollector_ManifestAndReportCounters(t *testing.T) {
	c := NewCollector("", "", "")

	c.IncManifestPublished()
	c.IncManifestFailed()
	c.SetCacheWrites(9)
	c.IncReportWriteSuccess()
	c.IncReportWriteSuccess()
	c.IncReportWriteFailure()

	s := c.Snapshot()
	if s.ManifestsPublished != 1 || s.ManifestsFailed != 1 {
		t.Errorf("manifests = %d/%d", s.ManifestsPublished, s.ManifestsFailed)
	}
	if s.CacheWrites != 9 {
		t.Errorf("CacheWrites = %d, want 9", s.CacheWrites)
	}
	if s.ReportWriteSuccess != 2 || s.ReportWriteFailure != 1 {
		t.Errorf("report writes = %d/%d", s.ReportWriteSuccess, s.ReportWriteFailure)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("http://localhost:1984", "s3", "run-42")
	s := c.Snapshot()

	if s.Gateway != "http://localhost:1984" {
		t.Errorf("Gateway = %q", s.Gateway)
	}
	if s.ReportBackend != "s3" {
		t.Errorf("ReportBackend = %q, want %q", s.ReportBackend, "s3")
	}
	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("", "", "")
	c.IncRateLimited()

	s := c.Snapshot()
	c.IncRateLimited()

	if s.RateLimited != 1 {
		t.Errorf("snapshot changed after mutation: %d", s.RateLimited)
	}
	if c.Snapshot().RateLimited != 2 {
		t.Errorf("collector RateLimited = %d, want 2", c.Snapshot().RateLimited)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	c.IncUploaded(KindImage, 1)
	c.IncFailed(KindMetadata)
	c.IncSkipped(KindImage)
	c.IncRateLimited()
	c.AddBackoff(1)
	c.IncRetryExhausted()
	c.AddChunks(1)
	c.IncManifestPublished()
	c.IncManifestFailed()
	c.SetCacheWrites(1)
	c.IncReportWriteSuccess()
	c.IncReportWriteFailure()

	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("", "", "")

	var wg sync.WaitGroup
	const n = 100
	for range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.IncUploaded(KindImage, 1)
		}()
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	if s := c.Snapshot(); s.ImagesUploaded != n || s.BytesUploaded != n {
		t.Errorf("after concurrent access: %d uploads, %d bytes", s.ImagesUploaded, s.BytesUploaded)
	}
}
