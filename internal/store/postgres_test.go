package store

import (
	"encoding/json"
	"testing"
)

func TestToJSON(t *testing.T) {
	if v := toJSON(nil); v != nil {
		t.Fatalf("nil -> nil expected, got %s", v)
	}
	b := toJSON([]int{1, 2, 3})
	var out []int
	if err := json.Unmarshal(b, &out); err != nil || len(out) != 3 {
		t.Fatalf("round trip failed: %s %v", b, err)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty preserved, got %v", v)
	}
}
