package ratelimit_test

import (
	"testing"
	"time"

	"BattPulse/internal/service/ratelimit"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := ratelimit.New(3, 0.0001)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("request past burst allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := ratelimit.New(1, 0.0001)

	if !l.Allow("a") {
		t.Fatalf("first key denied")
	}
	if l.Allow("a") {
		t.Fatalf("exhausted key allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("fresh key denied")
	}
}

func TestRefill(t *testing.T) {
	l := ratelimit.New(1, 50) // one token every 20ms

	if !l.Allow("k") {
		t.Fatalf("initial token denied")
	}
	if l.Allow("k") {
		t.Fatalf("empty bucket allowed")
	}

	time.Sleep(40 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatalf("bucket did not refill")
	}
}

func TestPrune(t *testing.T) {
	l := ratelimit.New(1, 0.0001)

	if !l.Allow("stale") {
		t.Fatalf("setup allow failed")
	}
	if l.Allow("stale") {
		t.Fatalf("bucket should be empty")
	}

	l.Prune(0)
	// Pruned keys start over with a full bucket.
	if !l.Allow("stale") {
		t.Fatalf("pruned key still throttled")
	}
}
