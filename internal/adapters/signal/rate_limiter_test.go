package signal

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewEventRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("c1") {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if rl.Allow("c1") {
		t.Fatal("fourth attempt within the window should be blocked")
	}
}

func TestRateLimiterIsPerConnection(t *testing.T) {
	rl := NewEventRateLimiter(1, time.Minute)

	if !rl.Allow("c1") {
		t.Fatal("first c1 attempt should pass")
	}
	if !rl.Allow("c2") {
		t.Fatal("c2 must have its own window")
	}
	if rl.Allow("c1") {
		t.Fatal("second c1 attempt should be blocked")
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewEventRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("c1") {
		t.Fatal("first attempt should pass")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("c1") {
		t.Fatal("attempt after the window should pass")
	}
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewEventRateLimiter(1, time.Minute)

	rl.Allow("c1")
	rl.Forget("c1")
	if !rl.Allow("c1") {
		t.Fatal("forgotten connection should start fresh")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewEventRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("c1") {
			t.Fatal("zero limit disables limiting")
		}
	}
}
