package httpmiddleware

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewSimpleTokenBucket(3, 60)
	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Fatal("request over capacity should be rejected")
	}
	// A different client has its own bucket.
	if !l.allow("5.6.7.8") {
		t.Fatal("unrelated client should not be throttled")
	}
}

func TestCapacityDefaultsToRate(t *testing.T) {
	l := NewSimpleTokenBucket(0, 2)
	if !l.allow("k") || !l.allow("k") {
		t.Fatal("expected capacity to default to the per-minute rate")
	}
	if l.allow("k") {
		t.Fatal("expected the defaulted bucket to exhaust")
	}
}
