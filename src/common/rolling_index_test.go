package common

import (
	"testing"
)

func TestRollingIndex(t *testing.T) {
	size := 3
	r := NewRollingIndex("test", size)

	for i := 0; i < 2*size; i++ {
		if idx := r.Append(i); idx != i {
			t.Fatalf("Append should return %d, not %d", i, idx)
		}
	}

	items, err := r.Get(-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2*size {
		t.Fatalf("Get(-1) should return %d items, not %d", 2*size, len(items))
	}

	// rolls
	r.Append(2 * size)

	if _, err := r.GetItem(0); !IsStore(err, TooLate) {
		t.Fatalf("GetItem(0) should be TooLate, not %v", err)
	}
	if _, err := r.Get(0); !IsStore(err, TooLate) {
		t.Fatalf("Get(0) should be TooLate, not %v", err)
	}

	items, err = r.Get(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].(int) != 5 || items[1].(int) != 6 {
		t.Fatalf("Get(4) should return [5 6], not %v", items)
	}

	item, err := r.GetItem(6)
	if err != nil {
		t.Fatal(err)
	}
	if item.(int) != 6 {
		t.Fatalf("GetItem(6) should be 6, not %v", item)
	}

	if _, err := r.GetItem(7); !IsStore(err, KeyNotFound) {
		t.Fatalf("GetItem(7) should be KeyNotFound, not %v", err)
	}

	if err := r.Set(100, 9); !IsStore(err, SkippedIndex) {
		t.Fatalf("Set(9) should be SkippedIndex, not %v", err)
	}

	if err := r.Set(60, 6); err != nil {
		t.Fatal(err)
	}
	if item, _ := r.GetItem(6); item.(int) != 60 {
		t.Fatalf("GetItem(6) should be 60 after Set")
	}

	if r.LastIndex() != 6 {
		t.Fatalf("LastIndex should be 6, not %d", r.LastIndex())
	}
}
