package main

import (
	"math"
	"testing"
)

func TestSpatialHashInsertAndQuery(t *testing.T) {
	h := NewSpatialHash(10)

	h.Insert(0, 5, 5)
	h.Insert(1, 25, 25)

	got := h.QueryIndices(5, 5, 1, nil)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("query (5,5) r=1: expected [0], got %v", got)
	}

	got = h.QueryIndices(5, 5, 30, got)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("query (5,5) r=30: expected [0 1], got %v", got)
	}
}

func TestSpatialHashNoFalseNegatives(t *testing.T) {
	h := NewSpatialHash(7)

	type point struct{ x, z float64 }
	points := []point{
		{0, 0}, {3.5, 3.5}, {-12, 9}, {100, -50}, {6.9, -6.9},
		{14, 14}, {-0.1, -0.1}, {49, 1}, {-33, -33}, {7, 0},
	}
	for i, p := range points {
		h.Insert(i, p.x, p.z)
	}

	queries := []struct{ x, z, r float64 }{
		{0, 0, 5}, {0, 0, 20}, {-10, 10, 8}, {50, 0, 3}, {7, 7, 50},
	}
	var buf []int
	for _, q := range queries {
		buf = h.QueryIndices(q.x, q.z, q.r, buf)
		found := make(map[int]bool, len(buf))
		for _, idx := range buf {
			found[idx] = true
		}
		for i, p := range points {
			if Distance(q.x, q.z, p.x, p.z) <= q.r && !found[i] {
				t.Errorf("query (%v,%v) r=%v missed point %d at (%v,%v)",
					q.x, q.z, q.r, i, p.x, p.z)
			}
		}
	}
}

func TestSpatialHashDeterministicOrder(t *testing.T) {
	h := NewSpatialHash(5)
	// Insert out of index order, spread across several cells
	h.Insert(7, 1, 1)
	h.Insert(2, 3, 3)
	h.Insert(9, 8, 1)
	h.Insert(0, 1, 8)

	first := append([]int(nil), h.QueryIndices(4, 4, 10, nil)...)
	second := h.QueryIndices(4, 4, 10, nil)
	if len(first) != len(second) {
		t.Fatalf("result length changed between identical queries: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic result: %v vs %v", first, second)
		}
		if i > 0 && first[i-1] > first[i] {
			t.Fatalf("result not sorted ascending: %v", first)
		}
	}
}

func TestSpatialHashNegativeRadius(t *testing.T) {
	h := NewSpatialHash(10)
	h.Insert(0, 0, 0)

	if got := h.QueryIndices(0, 0, -1, nil); len(got) != 0 {
		t.Errorf("negative radius should return empty, got %v", got)
	}
}

func TestSpatialHashNonFiniteInputs(t *testing.T) {
	h := NewSpatialHash(10)
	h.Insert(0, math.NaN(), 0)
	h.Insert(1, math.Inf(1), 0)
	h.Insert(2, 0, 0)

	got := h.QueryIndices(0, 0, 5, nil)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("non-finite inserts should be ignored, got %v", got)
	}
	if got := h.QueryIndices(math.NaN(), 0, 5, nil); len(got) != 0 {
		t.Errorf("NaN query should return empty, got %v", got)
	}
	if got := h.QueryIndices(0, 0, math.NaN(), nil); len(got) != 0 {
		t.Errorf("NaN radius should return empty, got %v", got)
	}
}

func TestSpatialHashMinCellSize(t *testing.T) {
	h := NewSpatialHash(0)
	if h.CellSize() != MinCellSize {
		t.Errorf("cell size should clamp to %v, got %v", MinCellSize, h.CellSize())
	}
	h.Insert(0, 0.5, 0.5)
	if got := h.QueryIndices(0.5, 0.5, 1, nil); len(got) != 1 {
		t.Errorf("expected 1 result after clamped cell size, got %v", got)
	}
}

func TestSpatialHashResetReusesCells(t *testing.T) {
	h := NewSpatialHash(10)
	h.Insert(0, 5, 5)
	h.Insert(1, 25, 25)

	h.Reset(0)
	if got := h.QueryIndices(5, 5, 100, nil); len(got) != 0 {
		t.Errorf("expected empty after reset, got %v", got)
	}
	if len(h.pool) == 0 {
		t.Error("reset should return cells to the pool")
	}

	// Rebuild; pooled cells must come back clean
	h.Insert(3, 5, 5)
	got := h.QueryIndices(5, 5, 1, nil)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("expected [3] after rebuild, got %v", got)
	}
}

func TestSpatialHashResetAdoptsCellSize(t *testing.T) {
	h := NewSpatialHash(10)
	h.Reset(20)
	if h.CellSize() != 20 {
		t.Errorf("expected cell size 20 after reset, got %v", h.CellSize())
	}
	h.Reset(0)
	if h.CellSize() != 20 {
		t.Errorf("reset without size should keep 20, got %v", h.CellSize())
	}
	h.Reset(0.001)
	if h.CellSize() != MinCellSize {
		t.Errorf("tiny size should clamp to %v, got %v", MinCellSize, h.CellSize())
	}
}
