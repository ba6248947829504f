package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("test", "hit"))
	RecordCacheLookup("test", true, nil)
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("test", "hit")); got != before+1 {
		t.Fatalf("hit counter = %v, want %v", got, before+1)
	}

	beforeErr := testutil.ToFloat64(CacheLookups.WithLabelValues("test", "error"))
	RecordCacheLookup("test", true, errors.New("disk"))
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("test", "error")); got != beforeErr+1 {
		t.Fatalf("error counter = %v, want %v", got, beforeErr+1)
	}
}

func TestRecordResolution(t *testing.T) {
	before := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("degraded", "fallback"))
	RecordResolution("degraded", "fallback", 6, 120*time.Millisecond)
	if got := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("degraded", "fallback")); got != before+1 {
		t.Fatalf("resolution counter = %v, want %v", got, before+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("POST", "/api/analyze-vibe", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/analyze-vibe", "200")); got < 1 {
		t.Fatalf("expected api request counter to be recorded, got %v", got)
	}
}
