package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowExpiry(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	base := time.Now()

	if count := window.Add(base); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	if count := window.Add(base.Add(time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(base.Add(4 * time.Second)); count != 0 {
		t.Fatalf("expected expired window, got %d", count)
	}
}
