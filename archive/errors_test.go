package archive

import (
	"context"
	"errors"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o" }
func (timeoutErr) Timeout() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{timeoutErr{}, ErrTimeout},
		{context.DeadlineExceeded, ErrTimeout},
		{errors.New("open /x: permission denied"), ErrPermissionDenied},
		{errors.New("api error AccessDenied: Access Denied"), ErrAccessDenied},
		{errors.New("open /x: no such file or directory"), ErrNotFound},
		{errors.New("NoSuchBucket: bucket missing"), ErrNotFound},
		{errors.New("write: no space left on device"), ErrDiskFull},
		{errors.New("SlowDown: reduce request rate"), ErrThrottled},
		{errors.New("failed to refresh cached credentials"), ErrAuth},
		{errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrNetwork},
		{errors.New("something else"), ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if wrapError("write", "x", nil) != nil {
		t.Fatal("nil error should stay nil")
	}
	inner := errors.New("open: permission denied")
	err := wrapError("write", "logbook", inner)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied")
	}
	if !errors.Is(err, inner) {
		t.Errorf("inner error lost from chain")
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct{ in, bucket, prefix string }{
		{"bucket", "bucket", ""},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q", tt.in, b, p)
		}
	}
}

func TestMatchesPartition(t *testing.T) {
	path := "datasets/logbook/day=2026-02-07/data_type=BATTLE/part.jsonl"
	if !matchesPartition(path, "data_type", "BATTLE") {
		t.Error("expected match")
	}
	if matchesPartition(path, "data_type", "BATTLE_RESULT") {
		t.Error("prefix must not match")
	}
}
