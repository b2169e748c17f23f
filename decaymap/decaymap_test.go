package decaymap

import (
	"testing"
	"time"
)

func TestImpl(t *testing.T) {
	dm := New[string, string]()

	dm.Set("test", "hi", 5*time.Minute)

	val, ok := dm.Get("test")
	if !ok {
		t.Error("somehow the test key was not set")
	}

	if val != "hi" {
		t.Errorf("wanted value %q, got: %q", "hi", val)
	}

	ok = dm.expire("test")
	if !ok {
		t.Fatal("test key was not expired")
	}

	if _, ok := dm.Get("test"); ok {
		t.Error("got value even though it was supposed to be expired")
	}
}

func TestDelete(t *testing.T) {
	dm := New[string, int]()

	if dm.Delete("missing") {
		t.Error("deleting a missing key reported success")
	}

	dm.Set("present", 1, time.Minute)
	if !dm.Delete("present") {
		t.Error("deleting a present key reported failure")
	}

	if _, ok := dm.Get("present"); ok {
		t.Error("deleted key is still readable")
	}
}

func TestCleanup(t *testing.T) {
	dm := New[string, string]()

	dm.Set("test1", "hi1", 1*time.Second)
	dm.Set("test2", "hi2", 2*time.Second)
	dm.Set("test3", "hi3", 3*time.Second)

	dm.expire("test1")
	dm.expire("test2")

	dm.Cleanup()

	if got := dm.Len(); got != 1 {
		t.Errorf("wanted 1 entry after cleanup, got %d", got)
	}

	if _, ok := dm.Get("test3"); !ok {
		t.Error("unexpired key was removed by Cleanup")
	}
}
