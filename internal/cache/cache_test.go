/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestResultKey(t *testing.T) {
	seed := int64(42)
	tests := []struct {
		name string
		seed *int64
		want string
	}{
		{"deterministic", nil, "grimnir:seq:result:cat1:perceptual_randomness:8:det"},
		{"seeded", &seed, "grimnir:seq:result:cat1:perceptual_randomness:8:42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultKey("cat1", "perceptual_randomness", 8, tt.seed); got != tt.want {
				t.Fatalf("ResultKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnreachableRedisFallsBackToDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() should not fail on an unreachable server: %v", err)
	}
	defer c.Close()

	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled")
	}

	ctx := context.Background()
	if err := c.SetSequence(ctx, &CachedSequence{CatalogID: "cat1", Bundle: "b", Length: 2, ItemIDs: []string{"a", "b"}}); err != nil {
		t.Fatalf("SetSequence on disabled cache: %v", err)
	}
	if _, ok := c.GetSequence(ctx, "cat1", "b", 2, nil); ok {
		t.Fatal("disabled cache must miss")
	}
	if err := c.InvalidateCatalog(ctx, "cat1"); err != nil {
		t.Fatalf("InvalidateCatalog on disabled cache: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no address", Config{DisableOnError: true}},
		{"unreachable without fallback", Config{RedisAddr: "127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, zerolog.Nop())
			if err == nil {
				_ = c.Close()
				t.Fatal("expected error")
			}
			if c != nil {
				t.Fatalf("expected nil cache, got %+v", c)
			}
		})
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	if c.IsAvailable() {
		t.Fatal("nil cache reported available")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil cache: %v", err)
	}
	if _, ok := c.GetSequence(context.Background(), "x", "y", 1, nil); ok {
		t.Fatal("nil cache must miss")
	}
}
