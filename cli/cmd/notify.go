package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lighthouse/adapter"
	"github.com/pithecene-io/lighthouse/adapter/redis"
	"github.com/pithecene-io/lighthouse/adapter/webhook"
	"github.com/pithecene-io/lighthouse/cli/config"
	"github.com/pithecene-io/lighthouse/iox"
	"github.com/pithecene-io/lighthouse/log"
	"github.com/pithecene-io/lighthouse/metrics"
	"github.com/pithecene-io/lighthouse/publish"
	"github.com/pithecene-io/lighthouse/report"
	"github.com/pithecene-io/lighthouse/types"
)

// notifyTimeout bounds report archiving and adapter delivery after a run.
const notifyTimeout = 30 * time.Second

// runRecord carries what the post-run steps need to know about a finished upload.
type runRecord struct {
	runID       string
	collection  string
	gateway     string
	startedAt   time.Time
	completedAt time.Time
	result      *publish.Result
	err         error
}

// finishRun archives the run report and publishes the completion event.
// Failures are logged and never change the command's outcome.
func finishRun(s *settings, rec runRecord, run report.Run, m *metrics.Collector, logger *log.Logger) {
	// The run context may already be cancelled; post-run steps get their own.
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if s.report.Backend != "" {
		if err := archiveRun(ctx, s.report, rec, run, m); err != nil {
			logger.Warn("run report not archived", map[string]any{"error": err.Error()})
		} else {
			logger.Info("run report archived", map[string]any{"backend": s.report.Backend, "path": s.report.Path})
		}
	}

	if s.adapter.Type == "" {
		return
	}
	sl := logger.Sugar().With("adapter", s.adapter.Type)
	a, err := buildAdapter(s.adapter)
	if err != nil {
		sl.Warnf("adapter not configured: %v", err)
		return
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(ctx, buildEvent(rec)); err != nil {
		sl.Errorf("completion event not delivered: %v", err)
		return
	}
	sl.Infof("completion event delivered for run %s", rec.runID)
}

func archiveRun(ctx context.Context, rc config.ReportConfig, rec runRecord, run report.Run, m *metrics.Collector) error {
	cfg := report.Config{
		Collection: rec.collection,
		Day:        report.DeriveDay(rec.startedAt),
		RunID:      rec.runID,
	}

	factory, err := reportFactory(ctx, rc)
	if err != nil {
		return err
	}
	archive, err := report.New(cfg, factory, m)
	if err != nil {
		return err
	}
	return archive.Write(ctx, run)
}

// reportFactory returns the lode store factory for the configured backend.
func reportFactory(ctx context.Context, rc config.ReportConfig) (lode.StoreFactory, error) {
	switch rc.Backend {
	case "fs":
		return lode.NewFSFactory(rc.Path), nil
	case "s3":
		bucket, prefix := report.ParseS3Path(rc.Path)
		return report.S3Factory(ctx, report.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       rc.Region,
			Endpoint:     rc.Endpoint,
			UsePathStyle: rc.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown report backend %q", rc.Backend)
	}
}

func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if ac.Retries != nil {
		retries = *ac.Retries
	}

	switch ac.Type {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:       ac.URL,
			Channel:   ac.Channel,
			KeyPrefix: ac.KeyPrefix,
			Encoding:  ac.Encoding,
			Timeout:   ac.Timeout.Duration,
			Retries:   retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", ac.Type)
	}
}

func buildEvent(rec runRecord) *adapter.CollectionPublishedEvent {
	ev := adapter.NewEvent(rec.completedAt)
	ev.ContractVersion = types.ContractVersion
	ev.RunID = rec.runID
	ev.Collection = rec.collection
	ev.Gateway = rec.gateway
	ev.Outcome = report.Outcome(rec.err)
	ev.DurationMs = rec.completedAt.Sub(rec.startedAt).Milliseconds()

	res := rec.result
	if res == nil {
		return ev
	}
	ev.RootURI = res.RootURI
	ev.ImagesManifest = res.ImagesManifest
	ev.MetadataManifest = res.MetadataManifest
	ev.Assets = res.Assets
	ev.ImagesUploaded = res.Images.Uploaded
	ev.MetadataUploaded = res.Metadata.Uploaded
	ev.Failed = len(res.Images.Failed) + len(res.Metadata.Failed)
	if res.Estimate != nil && res.Estimate.Winston != nil {
		ev.CostWinston = res.Estimate.Winston.String()
	}
	return ev
}
