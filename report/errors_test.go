package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"context deadline exceeded", ErrTimeout},
		{"AccessDenied: you do not have access", ErrAccessDenied},
		{"received status 403", ErrAccessDenied},
		{"open /tmp/file: permission denied", ErrPermissionDenied},
		{"NoSuchBucket: the bucket does not exist", ErrNotFound},
		{"write: no space left on device", ErrDiskFull},
		{"SlowDown: reduce your request rate", ErrThrottled},
		{"NoCredentialProviders: no valid providers in chain", ErrAuth},
		{"dial tcp 10.0.0.1:443: connection refused", ErrNetwork},
		{"something odd", ErrUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := classify(errors.New(tt.msg)); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassify_TimeoutInterface(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", context.DeadlineExceeded)
	if got := classify(err); got != ErrTimeout {
		t.Errorf("classify = %v, want ErrTimeout", got)
	}
}

func TestStorageError_Chain(t *testing.T) {
	cause := errors.New("no space left on device")
	err := wrapError("write", "lighthouse", cause)

	if !errors.Is(err, ErrDiskFull) {
		t.Error("errors.Is(ErrDiskFull) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("matched the wrong sentinel")
	}
	if wrapError("write", "x", nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/runs", "bucket", "runs"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q", tt.in, b, p)
		}
	}
	cfg := S3Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty bucket")
	}
}
