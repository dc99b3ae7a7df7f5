package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"default", DefaultPolicy(), 0, 5 * time.Minute},
		{"negative override uses default", DefaultPolicy(), -time.Second, 5 * time.Minute},
		{"override", DefaultPolicy(), 10 * time.Minute, 10 * time.Minute},
		{"clamped", DefaultPolicy(), 2 * time.Hour, time.Hour},
		{"no max", Policy{DefaultTTL: time.Minute}, 48 * time.Hour, 48 * time.Hour},
		{"disabled", NoCachePolicy(), 0, 0},
		{"override enables disabled", NoCachePolicy(), time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_ShouldCache(t *testing.T) {
	if !DefaultPolicy().ShouldCache() {
		t.Error("DefaultPolicy should cache")
	}
	if NoCachePolicy().ShouldCache() {
		t.Error("NoCachePolicy should not cache")
	}
}

func TestDefaultPolicies(t *testing.T) {
	want := map[Category]time.Duration{
		Tasks:     5 * time.Minute,
		Projects:  5 * time.Minute,
		Tags:      10 * time.Minute,
		Folders:   10 * time.Minute,
		Analytics: time.Hour,
		Reviews:   5 * time.Minute,
	}
	policies := DefaultPolicies()
	for _, c := range Categories() {
		p, ok := policies[c]
		if !ok {
			t.Fatalf("no policy for %s", c)
		}
		if p.EffectiveTTL(0) != want[c] {
			t.Errorf("%s TTL = %v, want %v", c, p.EffectiveTTL(0), want[c])
		}
		if p.MaxTTL < p.DefaultTTL {
			t.Errorf("%s MaxTTL below DefaultTTL", c)
		}
	}
}
