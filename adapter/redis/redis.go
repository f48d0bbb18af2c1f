// Package redis announces collection events over Redis.
//
// Every event is PUBLISHed to a channel. A successful run also records
// the collection's current manifests in a hash, written in the same
// MULTI/EXEC as the PUBLISH, so a subscriber that reads the hash on
// receipt never sees the previous root.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/lighthouse/adapter"
)

// DefaultChannel receives every event.
const DefaultChannel = "lighthouse:collection_published"

// DefaultKeyPrefix prefixes the per-collection hash.
const DefaultKeyPrefix = "lighthouse:collection:"

// Fields of the per-collection hash.
const (
	FieldTokenURI         = "token_uri"
	FieldImagesManifest   = "images_manifest"
	FieldMetadataManifest = "metadata_manifest"
	FieldRunID            = "run_id"
	FieldPublishedAt      = "published_at"
)

// Payload encodings.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// DefaultTimeout bounds one MULTI/EXEC round trip.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is used when the CLI config leaves retries unset.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is redis://[:password@]host:port[/db] (required).
	URL string
	// Channel receives the encoded event (default lighthouse:collection_published).
	Channel string
	// KeyPrefix prefixes the collection hash key (default lighthouse:collection:).
	KeyPrefix string
	// Encoding is "json" (default) or "msgpack".
	Encoding string
	// Timeout bounds one round trip (default 5s).
	Timeout time.Duration
	// Retries is the retry budget for a published collection. Other
	// outcomes use at most one retry.
	Retries int
	// Backoff is the delay before the first retry (default 500ms).
	Backoff time.Duration
}

// Adapter announces collection events on Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New validates cfg and returns an adapter. No connection is made until Publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	switch cfg.Encoding {
	case "":
		cfg.Encoding = EncodingJSON
	case EncodingJSON, EncodingMsgpack:
	default:
		return nil, fmt.Errorf("redis adapter: unknown encoding %q", cfg.Encoding)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// CollectionKey returns the hash key holding a collection's manifests.
func (a *Adapter) CollectionKey(collection string) string {
	return a.config.KeyPrefix + collection
}

// Publish announces event. For a published collection the hash update
// and the PUBLISH are applied together or not at all.
func (a *Adapter) Publish(ctx context.Context, event *adapter.CollectionPublishedEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	body, err := encode(a.config.Encoding, event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	d := adapter.Delivery{
		Attempts: event.Attempts(a.config.Retries),
		Backoff:  a.config.Backoff,
	}
	err = d.Run(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		_, err := a.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if event.Published() {
				pipe.HSet(ctx, a.CollectionKey(event.Collection), manifestFields(event))
			}
			pipe.Publish(ctx, a.config.Channel, body)
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("redis: run %s: %w", event.DeliveryKey(), err)
	}
	return nil
}

func manifestFields(event *adapter.CollectionPublishedEvent) map[string]any {
	return map[string]any{
		FieldTokenURI:         event.RootURI,
		FieldImagesManifest:   event.ImagesManifest,
		FieldMetadataManifest: event.MetadataManifest,
		FieldRunID:            event.RunID,
		FieldPublishedAt:      event.Timestamp,
	}
}

func encode(encoding string, event *adapter.CollectionPublishedEvent) ([]byte, error) {
	if encoding == EncodingMsgpack {
		return msgpack.Marshal(event)
	}
	return json.Marshal(event)
}

// Close closes the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
