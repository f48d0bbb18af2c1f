package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func publishedEvent() *CollectionPublishedEvent {
	ev := NewEvent(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
	ev.RunID = "run-7"
	ev.Collection = "genesis"
	ev.Outcome = OutcomeSuccess
	ev.RootURI = "https://arweave.net/MMMM"
	ev.ImagesManifest = "IIII"
	ev.MetadataManifest = "MMMM"
	return ev
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CollectionPublishedEvent)
		wantErr string
	}{
		{"published", func(*CollectionPublishedEvent) {}, ""},
		{"failed without root", func(e *CollectionPublishedEvent) {
			e.Outcome = OutcomeFailed
			e.RootURI, e.ImagesManifest, e.MetadataManifest = "", "", ""
		}, ""},
		{"incomplete with images only", func(e *CollectionPublishedEvent) {
			e.Outcome = OutcomeIncomplete
			e.RootURI, e.MetadataManifest = "", ""
		}, ""},
		{"success without root", func(e *CollectionPublishedEvent) { e.RootURI = "" }, "root_uri"},
		{"success without images manifest", func(e *CollectionPublishedEvent) { e.ImagesManifest = "" }, "root_uri"},
		{"unknown outcome", func(e *CollectionPublishedEvent) { e.Outcome = "partial" }, `outcome "partial"`},
		{"missing run id", func(e *CollectionPublishedEvent) { e.RunID = "" }, "run_id"},
		{"wrong type", func(e *CollectionPublishedEvent) { e.EventType = "run_completed" }, "event_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := publishedEvent()
			tt.mutate(ev)
			err := ev.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidEvent) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want ErrInvalidEvent mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestAttempts(t *testing.T) {
	ev := publishedEvent()
	if got := ev.Attempts(3); got != 4 {
		t.Errorf("published: Attempts(3) = %d, want 4", got)
	}
	if got := ev.Attempts(0); got != 1 {
		t.Errorf("published: Attempts(0) = %d, want 1", got)
	}

	ev.Outcome = OutcomeFailed
	if got := ev.Attempts(3); got != 2 {
		t.Errorf("failed: Attempts(3) = %d, want 2", got)
	}
	if got := ev.Attempts(0); got != 1 {
		t.Errorf("failed: Attempts(0) = %d, want 1", got)
	}
}

func TestDeliveryKey(t *testing.T) {
	if got := publishedEvent().DeliveryKey(); got != "genesis/run-7" {
		t.Errorf("DeliveryKey = %q", got)
	}
}

func TestDelivery_Run(t *testing.T) {
	errBusy := errors.New("busy")
	errGone := errors.New("gone")

	tests := []struct {
		name      string
		attempts  int
		results   []error
		wantCalls int
		wantErr   error
	}{
		{"first try", 3, []error{nil}, 1, nil},
		{"recovers", 3, []error{errBusy, errBusy, nil}, 3, nil},
		{"exhausted", 2, []error{errBusy}, 2, errBusy},
		{"permanent stops", 5, []error{errGone}, 1, errGone},
		{"zero attempts sends once", 0, []error{errBusy}, 1, errBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			d := Delivery{
				Attempts:  tt.attempts,
				Backoff:   time.Millisecond,
				Permanent: func(err error) bool { return errors.Is(err, errGone) },
			}
			err := d.Run(t.Context(), func(context.Context) error {
				res := tt.results[min(calls, len(tt.results)-1)]
				calls++
				return res
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDelivery_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	d := Delivery{Attempts: 3, Backoff: time.Hour}
	calls := 0
	err := d.Run(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("busy")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
