package ratelimit

import (
	"testing"
	"time"
)

func TestWindowLimit(t *testing.T) {
	p := New(60, time.Minute)

	for i := 0; i < 60; i++ {
		if !p.Allow("send:user:alice") {
			t.Fatalf("call %d rejected inside the window", i+1)
		}
	}
	if p.Allow("send:user:alice") {
		t.Fatal("61st call in the window should be rejected")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	p := New(1, time.Minute)

	if !p.Allow("send:user:alice") {
		t.Fatal("first call for alice rejected")
	}
	if p.Allow("send:user:alice") {
		t.Fatal("alice over her limit, should be rejected")
	}
	if !p.Allow("send:user:bob") {
		t.Fatal("bob's limit affected by alice")
	}
}

func TestDefaults(t *testing.T) {
	p := New(0, 0)
	if p.limit != 60 || p.window != time.Minute {
		t.Fatalf("defaults = %d/%s, want 60/1m", p.limit, p.window)
	}
}
