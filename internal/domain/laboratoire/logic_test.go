package laboratoire

import (
	"errors"
	"testing"
)

func ptr(v int64) *int64 { return &v }

func structureSet() map[int64]Structure {
	// lab 1: 10 <- 11 <- 12 (12's parent is 11, 11's parent is 10)
	// lab 2: 20
	return map[int64]Structure{
		10: {ID: 10, Laboratoire: 1},
		11: {ID: 11, Laboratoire: 1, Parent: ptr(10)},
		12: {ID: 12, Laboratoire: 1, Parent: ptr(11)},
		20: {ID: 20, Laboratoire: 2},
	}
}

func TestCheckParentAccepts(t *testing.T) {
	all := structureSet()
	if err := CheckParent(all, 0, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := CheckParent(all, 0, 1, ptr(12)); err != nil {
		t.Fatal(err)
	}
	// Re-parenting a leaf under a sibling chain is fine.
	if err := CheckParent(all, 12, 1, ptr(10)); err != nil {
		t.Fatal(err)
	}
}

func TestCheckParentRejectsMissing(t *testing.T) {
	if err := CheckParent(structureSet(), 0, 1, ptr(99)); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestCheckParentRejectsOtherLab(t *testing.T) {
	if err := CheckParent(structureSet(), 0, 1, ptr(20)); !errors.Is(err, ErrParentOtherLab) {
		t.Fatalf("expected ErrParentOtherLab, got %v", err)
	}
}

func TestCheckParentRejectsSelf(t *testing.T) {
	if err := CheckParent(structureSet(), 11, 1, ptr(11)); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("expected ErrParentCycle, got %v", err)
	}
}

func TestCheckParentRejectsCycle(t *testing.T) {
	// Hanging 10 under its grandchild 12 would loop 10 -> 12 -> 11 -> 10.
	if err := CheckParent(structureSet(), 10, 1, ptr(12)); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("expected ErrParentCycle, got %v", err)
	}
}
