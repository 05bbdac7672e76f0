package middleware

import (
	"testing"
	"time"

	"github.com/mroshb/cockpit/pkg/clock"
)

func TestLoginLimiter_Allow(t *testing.T) {
	fixed := clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rl := NewLoginLimiter(3, time.Minute, fixed.Now)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user:alice") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("user:alice") {
		t.Error("fourth attempt in window should be throttled")
	}
	if !rl.Allow("user:bob") {
		t.Error("other keys are counted separately")
	}
	if got := rl.Remaining("user:alice"); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}

	fixed.Advance(time.Minute)
	if !rl.Allow("user:alice") {
		t.Error("attempts should be allowed again after the window")
	}
	if got := rl.Remaining("user:alice"); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}
}

func TestLoginLimiter_Clear(t *testing.T) {
	rl := NewLoginLimiter(1, time.Minute, nil)

	if !rl.Allow("device:gate") {
		t.Fatal("first attempt should be allowed")
	}
	if rl.Allow("device:gate") {
		t.Fatal("second attempt should be throttled")
	}
	rl.Clear("device:gate")
	if !rl.Allow("device:gate") {
		t.Error("attempt after Clear should be allowed")
	}
}

func TestLoginLimiter_Disabled(t *testing.T) {
	rl := NewLoginLimiter(0, time.Minute, nil)
	for i := 0; i < 10; i++ {
		if !rl.Allow("user:any") {
			t.Fatal("disabled limiter should allow every attempt")
		}
	}
}

func TestLoginLimiter_Nil(t *testing.T) {
	var rl *LoginLimiter
	if !rl.Allow("user:any") {
		t.Error("nil limiter should allow")
	}
	if got := rl.Remaining("user:any"); got != -1 {
		t.Errorf("Remaining() = %d, want -1", got)
	}
	rl.Clear("user:any")
}
