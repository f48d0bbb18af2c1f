// Package publish sequences an asset collection onto the network: pricing,
// image uploads, the images manifest, rewritten metadata uploads and the
// metadata manifest.
//
// Items are processed strictly one at a time. Every successful upload is
// recorded in the cache before the next item starts, so a run that stops
// for any reason can be re-invoked and resumes where it left off.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/log"
	"github.com/pithecene-io/lighthouse/metrics"
	"github.com/pithecene-io/lighthouse/runlog"
	"github.com/pithecene-io/lighthouse/types"
)

// Phase is a pipeline state.
type Phase string

// Pipeline phases, in order.
const (
	PhaseValidating                 Phase = "validating"
	PhasePricing                    Phase = "pricing_and_confirming"
	PhaseUploadingImages            Phase = "uploading_images"
	PhasePublishingImageManifest    Phase = "publishing_image_manifest"
	PhaseUploadingMetadata          Phase = "uploading_metadata"
	PhasePublishingMetadataManifest Phase = "publishing_metadata_manifest"
	PhaseDone                       Phase = "done"
)

// Confirmer asks for explicit approval before spending.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// RetryPolicy bounds rate-limit retries of a single item.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the wait after the first rate-limited attempt; each
	// further wait doubles it.
	BaseDelay time.Duration
}

// DefaultRetryPolicy waits 60s, 120s and 240s before giving up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Minute}
}

// Delay returns the wait after the rate-limited attempt number attempt,
// counting from 0.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config wires the pipeline's collaborators.
type Config struct {
	Network Network
	Wallet  *arweave.Wallet
	// Gateway is the normalized base URL used in image references and the
	// root URI.
	Gateway   string
	Assets    assets.Store
	Cache     *cache.Store
	Log       *runlog.Log
	Logger    *log.Logger
	Metrics   *metrics.Collector
	Confirmer Confirmer
	Retry     RetryPolicy
	// Sleep defaults to a timer honouring ctx.
	Sleep SleepFunc
}

// PhaseSummary reports the item counts of one upload phase.
type PhaseSummary struct {
	Uploaded int      `json:"uploaded"`
	Skipped  int      `json:"skipped"`
	Failed   []string `json:"failed,omitempty"`
}

// Result describes how far a run got.
type Result struct {
	Phase            Phase        `json:"phase"`
	Assets           int          `json:"assets"`
	Estimate         *Estimate    `json:"-"`
	Images           PhaseSummary `json:"images"`
	Metadata         PhaseSummary `json:"metadata"`
	ImagesManifest   string       `json:"images_manifest,omitempty"`
	MetadataManifest string       `json:"metadata_manifest,omitempty"`
	RootURI          string       `json:"root_uri,omitempty"`
}

// Pipeline runs one publish invocation.
type Pipeline struct {
	cfg      Config
	factory  *TransactionFactory
	uploader *ChunkedUploader
	sleep    SleepFunc
	// spending is set once uploads begin; only then is the log batch flushed.
	spending bool
}

// New validates cfg and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Network == nil:
		return nil, errors.New("pipeline requires a network client")
	case cfg.Assets == nil:
		return nil, errors.New("pipeline requires an asset store")
	case cfg.Cache == nil:
		return nil, errors.New("pipeline requires a cache")
	case cfg.Confirmer == nil:
		return nil, errors.New("pipeline requires a confirmer")
	case cfg.Gateway == "":
		return nil, errors.New("pipeline requires a gateway URL")
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Log == nil {
		cfg.Log = runlog.New(runlog.DefaultFile)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Pipeline{
		cfg:      cfg,
		factory:  NewTransactionFactory(cfg.Network, cfg.Wallet),
		uploader: NewChunkedUploader(cfg.Network, cfg.Wallet, cfg.Metrics),
		sleep:    sleep,
	}, nil
}

// Run executes every phase in order. On any abort after spending has
// begun, the cache and the log batch are persisted before returning.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	err := p.run(ctx, res)
	if !p.spending {
		return res, err
	}
	p.cfg.Metrics.SetCacheWrites(int64(p.cfg.Cache.Writes()))
	if ferr := p.flush(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	p.enter(res, PhaseValidating)
	list, err := assets.Discover(p.cfg.Assets, assets.Options{})
	if err != nil {
		return err
	}
	res.Assets = len(list)

	p.enter(res, PhasePricing)
	if err := p.price(ctx, list, res); err != nil {
		return err
	}
	p.spending = true

	p.enter(res, PhaseUploadingImages)
	if err := p.uploadPhase(ctx, PhaseUploadingImages, p.imageItems(list), &res.Images); err != nil {
		return err
	}

	p.enter(res, PhasePublishingImageManifest)
	if err := p.publishManifest(ctx, cache.Images); err != nil {
		return err
	}
	res.ImagesManifest = p.cfg.Cache.Manifest(cache.Images)

	p.enter(res, PhaseUploadingMetadata)
	if err := p.uploadPhase(ctx, PhaseUploadingMetadata, p.metadataItems(list), &res.Metadata); err != nil {
		return err
	}

	p.enter(res, PhasePublishingMetadataManifest)
	if err := p.publishManifest(ctx, cache.Metadata); err != nil {
		return err
	}
	res.MetadataManifest = p.cfg.Cache.Manifest(cache.Metadata)

	p.enter(res, PhaseDone)
	res.RootURI = p.cfg.Gateway + "/" + res.MetadataManifest
	p.cfg.Log.Info("Upload complete: " + res.RootURI)
	return nil
}

func (p *Pipeline) enter(res *Result, phase Phase) {
	res.Phase = phase
	p.cfg.Logger.Info("phase", map[string]any{"phase": string(phase)})
}

func (p *Pipeline) price(ctx context.Context, list []types.Asset, res *Result) error {
	est, err := EstimateCost(ctx, p.cfg.Network, p.cfg.Assets, list, p.cfg.Cache, p.cfg.Gateway)
	if err != nil {
		return err
	}
	res.Estimate = est

	ok, err := p.cfg.Confirmer.Confirm(ctx, fmt.Sprintf("This will cost ~%s AR. Continue?", est.AR))
	if err != nil {
		return fmt.Errorf("confirm cost: %w", err)
	}
	if !ok {
		return ErrDeclined
	}
	return CheckBalance(ctx, p.cfg.Network, p.cfg.Wallet, est.Winston)
}

// item is one upload unit of a phase.
type item struct {
	name string
	kind string
	load func() (data []byte, contentType string, err error)
}

func (p *Pipeline) imageItems(list []types.Asset) []item {
	items := make([]item, 0, len(list))
	for _, a := range list {
		items = append(items, item{
			name: a.ImageName,
			kind: metrics.KindImage,
			load: func() ([]byte, string, error) {
				data, err := p.cfg.Assets.ReadFile(a.ImageName)
				return data, a.ContentType, err
			},
		})
	}
	return items
}

func (p *Pipeline) metadataItems(list []types.Asset) []item {
	manifestID := p.cfg.Cache.Manifest(cache.Images)
	items := make([]item, 0, len(list))
	for _, a := range list {
		items = append(items, item{
			name: a.Name,
			kind: metrics.KindMetadata,
			load: func() ([]byte, string, error) {
				doc, err := rewriteMetadata(p.cfg.Assets, a, ImageReference(p.cfg.Gateway, manifestID, a.ImageName))
				return doc, MetadataMediaType, err
			},
		})
	}
	return items
}

func listOf(kind string) cache.List {
	if kind == metrics.KindImage {
		return cache.Images
	}
	return cache.Metadata
}

// uploadPhase publishes every uncached item. Non-rate-limit failures are
// logged and counted; rate-limit exhaustion and cancellation abort.
func (p *Pipeline) uploadPhase(ctx context.Context, phase Phase, items []item, sum *PhaseSummary) error {
	for _, it := range items {
		list := listOf(it.kind)
		if p.cfg.Cache.Has(list, it.name) {
			sum.Skipped++
			p.cfg.Metrics.IncSkipped(it.kind)
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s interrupted: %w", phase, err)
		}

		txID, size, err := p.publishItem(ctx, it)
		if err != nil {
			var fatal *FatalRetryExhaustedError
			if errors.As(err, &fatal) {
				p.cfg.Log.Fatal(fmt.Sprintf("Failed to upload %s %s after %d retries", it.kind, it.name, p.cfg.Retry.MaxRetries), err)
				p.cfg.Metrics.IncRetryExhausted()
				return err
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%s interrupted: %w", phase, ctx.Err())
			}
			sum.Failed = append(sum.Failed, it.name)
			p.cfg.Log.Error(fmt.Sprintf("Failed to upload %s %s", it.kind, it.name), err)
			p.cfg.Metrics.IncFailed(it.kind)
			p.cfg.Logger.Error("item failed", map[string]any{"kind": it.kind, "name": it.name, "error": err.Error()})
			continue
		}

		if err := p.cfg.Cache.Record(list, cache.Entry{Name: it.name, TxID: txID}); err != nil {
			return fmt.Errorf("record %s %s: %w", it.kind, it.name, err)
		}
		sum.Uploaded++
		p.cfg.Metrics.IncUploaded(it.kind, size)
		p.cfg.Logger.Debug("item uploaded", map[string]any{"kind": it.kind, "name": it.name, "txid": txID})
	}

	if len(sum.Failed) > 0 {
		return &IncompletePhaseError{Phase: phase, Uploaded: sum.Uploaded, Failed: sum.Failed}
	}
	return nil
}

// publishItem uploads one item, retrying the same item after each
// rate-limited attempt until the retry policy is exhausted.
func (p *Pipeline) publishItem(ctx context.Context, it item) (string, int64, error) {
	data, contentType, err := it.load()
	if err != nil {
		return "", 0, err
	}

	for attempt := 0; ; attempt++ {
		out := p.attempt(ctx, data, contentType)
		switch out.Kind {
		case OutcomeSuccess:
			return out.TransactionID, int64(len(data)), nil
		case OutcomeFailed:
			return "", 0, out.Err
		}

		p.cfg.Metrics.IncRateLimited()
		if attempt >= p.cfg.Retry.MaxRetries {
			return "", 0, &FatalRetryExhaustedError{Item: it.name, Attempts: attempt + 1, Err: out.Err}
		}
		delay := p.cfg.Retry.Delay(attempt)
		p.cfg.Logger.Warn("rate limited, backing off", map[string]any{
			"name":    it.name,
			"attempt": attempt,
			"wait_ms": delay.Milliseconds(),
		})
		if err := p.sleep(ctx, delay); err != nil {
			return "", 0, err
		}
		p.cfg.Metrics.AddBackoff(delay.Milliseconds())
	}
}

func (p *Pipeline) attempt(ctx context.Context, data []byte, contentType string) UploadOutcome {
	tx, err := p.factory.ForBlob(ctx, data, contentType)
	if err != nil {
		return Classify("", err)
	}
	return Classify(p.uploader.Submit(ctx, tx))
}

// publishManifest publishes the manifest of list unless one is recorded.
func (p *Pipeline) publishManifest(ctx context.Context, list cache.List) error {
	if id := p.cfg.Cache.Manifest(list); id != "" {
		p.cfg.Logger.Info("manifest already published", map[string]any{"list": string(list), "id": id})
		return nil
	}

	m := BuildManifest(ManifestEntries(p.cfg.Cache.Entries(list)))
	txID, err := p.submitManifest(ctx, m)
	if err != nil {
		p.cfg.Log.Error(fmt.Sprintf("Failed to upload %s manifest", list), err)
		p.cfg.Metrics.IncManifestFailed()
		return &ManifestPublishError{List: list, Err: err}
	}
	if err := p.cfg.Cache.SetManifest(list, txID); err != nil {
		return fmt.Errorf("record %s manifest: %w", list, err)
	}
	p.cfg.Log.Info(fmt.Sprintf("Published %s manifest %s", list, txID))
	p.cfg.Metrics.IncManifestPublished()
	return nil
}

func (p *Pipeline) submitManifest(ctx context.Context, m *Manifest) (string, error) {
	tx, err := p.factory.ForManifest(ctx, m)
	if err != nil {
		return "", err
	}
	return p.uploader.Submit(ctx, tx)
}

func (p *Pipeline) flush() error {
	var errs []error
	if err := p.cfg.Cache.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := p.cfg.Log.Flush(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
