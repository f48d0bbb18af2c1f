// Package adapter defines the notification boundary for finished publish runs.
//
// Adapters announce a collection's manifests to downstream systems
// (mint services, indexers) once a run ends. Users provide configuration
// only; the CLI owns adapter lifecycle.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventTypeCollectionPublished is the event type of every notification.
const EventTypeCollectionPublished = "collection_published"

// Run outcomes carried by an event.
const (
	OutcomeSuccess    = "success"
	OutcomeIncomplete = "incomplete"
	OutcomeDeclined   = "declined"
	OutcomeFailed     = "failed"
)

// ErrInvalidEvent marks an event a receiver could not act on.
var ErrInvalidEvent = errors.New("invalid collection event")

// CollectionPublishedEvent is the payload published when a run finishes.
type CollectionPublishedEvent struct {
	EventType        string `json:"event_type" msgpack:"event_type"` // always "collection_published"
	ContractVersion  string `json:"contract_version" msgpack:"contract_version"`
	RunID            string `json:"run_id" msgpack:"run_id"`
	Collection       string `json:"collection" msgpack:"collection"`
	Gateway          string `json:"gateway" msgpack:"gateway"`
	Outcome          string `json:"outcome" msgpack:"outcome"` // success, incomplete, failed
	RootURI          string `json:"root_uri,omitempty" msgpack:"root_uri,omitempty"`
	ImagesManifest   string `json:"images_manifest,omitempty" msgpack:"images_manifest,omitempty"`
	MetadataManifest string `json:"metadata_manifest,omitempty" msgpack:"metadata_manifest,omitempty"`
	Assets           int    `json:"assets" msgpack:"assets"`
	ImagesUploaded   int    `json:"images_uploaded" msgpack:"images_uploaded"`
	MetadataUploaded int    `json:"metadata_uploaded" msgpack:"metadata_uploaded"`
	Failed           int    `json:"failed" msgpack:"failed"`
	CostWinston      string `json:"cost_winston,omitempty" msgpack:"cost_winston,omitempty"`
	Timestamp        string `json:"timestamp" msgpack:"timestamp"` // RFC 3339
	DurationMs       int64  `json:"duration_ms" msgpack:"duration_ms"`
}

// NewEvent returns an event stamped with the collection_published type
// and the completion time.
func NewEvent(completedAt time.Time) *CollectionPublishedEvent {
	return &CollectionPublishedEvent{
		EventType: EventTypeCollectionPublished,
		Timestamp: completedAt.UTC().Format(time.RFC3339),
	}
}

// Validate checks the event identity and that a successful run names
// its metadata root and both manifests.
func (e *CollectionPublishedEvent) Validate() error {
	if e.EventType != EventTypeCollectionPublished {
		return fmt.Errorf("%w: event_type %q", ErrInvalidEvent, e.EventType)
	}
	if e.RunID == "" || e.Collection == "" {
		return fmt.Errorf("%w: run_id and collection are required", ErrInvalidEvent)
	}
	switch e.Outcome {
	case OutcomeSuccess:
		if e.RootURI == "" || e.ImagesManifest == "" || e.MetadataManifest == "" {
			return fmt.Errorf("%w: success without root_uri and manifests", ErrInvalidEvent)
		}
	case OutcomeIncomplete, OutcomeDeclined, OutcomeFailed:
	default:
		return fmt.Errorf("%w: outcome %q", ErrInvalidEvent, e.Outcome)
	}
	return nil
}

// Published reports whether the run left a live metadata root.
func (e *CollectionPublishedEvent) Published() bool {
	return e.Outcome == OutcomeSuccess
}

// DeliveryKey identifies the run to receivers that drop redeliveries.
func (e *CollectionPublishedEvent) DeliveryKey() string {
	return e.Collection + "/" + e.RunID
}

// Attempts returns how often the event is offered to a receiver given
// the configured retries. A published root gets every retry; other
// outcomes are informational and get at most one.
func (e *CollectionPublishedEvent) Attempts(retries int) int {
	if !e.Published() {
		retries = min(retries, 1)
	}
	return 1 + max(retries, 0)
}

// Adapter publishes run events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends the event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CollectionPublishedEvent) error

	// Close releases adapter resources.
	Close() error
}
