package orderbook

import "testing"

func TestRBTreeUpsertFindDelete(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.UpsertLevel(100)
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(100); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(200)
	if tree.MinLevel().Price != 100 {
		t.Error("expected min=100")
	}
	if tree.MaxLevel().Price != 200 {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(100) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestRBTreeDeleteNonExistentLevel(t *testing.T) {
	tree := newRBTree()
	if tree.DeleteLevel(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestRBTreeEmptyMinMax(t *testing.T) {
	tree := newRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestRBTreeUpsertDuplicateLevel(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	if pl1 != pl2 {
		t.Error("Upsert should return the same level for a duplicate price")
	}
}

func TestRBTreeOrderingSurvivesManyInsertsAndDeletes(t *testing.T) {
	tree := newRBTree()
	prices := []int64{50, 10, 90, 30, 70, 20, 80, 40, 60, 100, 5, 95}
	for _, p := range prices {
		tree.UpsertLevel(p)
	}
	if tree.Size() != len(prices) {
		t.Fatalf("expected size %d, got %d", len(prices), tree.Size())
	}

	var ascending []int64
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		ascending = append(ascending, pl.Price)
		return true
	})
	for i := 1; i < len(ascending); i++ {
		if ascending[i] <= ascending[i-1] {
			t.Fatalf("ascending walk not sorted: %v", ascending)
		}
	}

	for _, p := range prices {
		if !tree.DeleteLevel(p) {
			t.Fatalf("failed to delete price %d", p)
		}
	}
	if tree.Size() != 0 {
		t.Fatalf("expected empty tree after deleting all levels, got size %d", tree.Size())
	}
}
