package cache

import (
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := New(20 * time.Millisecond)

	c.Set("k", "v")

	v, ok := c.Get("k")
	if !ok || v != "v" {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := New(time.Minute)

	c.Set("users:list:v1:a", 1)
	c.Set("users:list:v1:b", 2)
	c.Set("other", 3)

	c.DeletePrefix("users:list:v1:")

	if _, ok := c.Get("users:list:v1:a"); ok {
		t.Fatal("prefixed key should be gone")
	}
	if _, ok := c.Get("users:list:v1:b"); ok {
		t.Fatal("prefixed key should be gone")
	}
	if _, ok := c.Get("other"); !ok {
		t.Fatal("unrelated key should survive")
	}
}
