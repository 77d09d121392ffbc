package value

import "testing"

func TestListPushAndAt(t *testing.T) {
	l := &List{}
	for i := 0; i < 5; i++ {
		l.Push(Number(float64(i)))
	}
	if l.Len() != 5 {
		t.Fatalf("expected length 5, got %d", l.Len())
	}
	for i := 0; i < 5; i++ {
		if l.At(i).AsNumber() != float64(i) {
			t.Errorf("At(%d) = %v, want %d", i, l.At(i).AsNumber(), i)
		}
	}
}

func TestListInsertAt(t *testing.T) {
	l := &List{}
	l.Push(Number(1))
	l.Push(Number(3))
	l.InsertAt(1, Number(2))
	want := []float64{1, 2, 3}
	for i, w := range want {
		if l.At(i).AsNumber() != w {
			t.Errorf("At(%d) = %v, want %v", i, l.At(i).AsNumber(), w)
		}
	}
}

// TestListShrinksBelowQuarterCapacity exercises property 8's List half of
// the shrink rule: repeatedly removing elements from a large list must
// eventually release the excess backing capacity.
func TestListShrinksBelowQuarterCapacity(t *testing.T) {
	l := &List{}
	for i := 0; i < 1000; i++ {
		l.Push(Number(float64(i)))
	}
	bigCap := cap(l.elems)

	for l.Len() > 10 {
		l.RemoveAt(l.Len() - 1)
	}
	if cap(l.elems) >= bigCap {
		t.Errorf("expected backing capacity to shrink from %d, got %d", bigCap, cap(l.elems))
	}
	if l.Len() != 10 {
		t.Fatalf("expected 10 elements remaining, got %d", l.Len())
	}
}

func TestMapSetGetRemove(t *testing.T) {
	m := &Map{}
	m.Set(Number(1), Number(100))
	m.Set(Number(2), Number(200))

	if got := m.Get(Number(1)); got.AsNumber() != 100 {
		t.Errorf("Get(1) = %v, want 100", got.AsNumber())
	}
	if m.Count() != 2 {
		t.Fatalf("expected count 2, got %d", m.Count())
	}

	removed := m.Remove(Number(1))
	if removed.AsNumber() != 100 {
		t.Errorf("Remove(1) = %v, want 100", removed.AsNumber())
	}
	if got := m.Get(Number(1)); got.Kind != KindUndefined {
		t.Errorf("expected Get after Remove to be Undefined, got %#v", got)
	}
	if m.Count() != 1 {
		t.Fatalf("expected count 1 after remove, got %d", m.Count())
	}
}

// TestMapTombstoneCycleKeepsProbingIntact exercises property 8's tombstone
// half: deleting a key and reinserting a different one must leave every
// other key reachable and keep the count right.
func TestMapTombstoneCycleKeepsProbingIntact(t *testing.T) {
	m := &Map{}
	m.Set(Number(1), Number(1))
	m.Set(Number(2), Number(2))
	m.Set(Number(3), Number(3))

	m.Remove(Number(2))
	m.Set(Number(4), Number(4))

	if got := m.Get(Number(1)); got.AsNumber() != 1 {
		t.Errorf("Get(1) after tombstone cycle = %v, want 1", got.AsNumber())
	}
	if got := m.Get(Number(3)); got.AsNumber() != 3 {
		t.Errorf("Get(3) after tombstone cycle = %v, want 3", got.AsNumber())
	}
	if got := m.Get(Number(4)); got.AsNumber() != 4 {
		t.Errorf("Get(4) after tombstone cycle = %v, want 4", got.AsNumber())
	}
}

// TestMapGrowsAtLoadFactor exercises the ×4 growth rule: inserting enough
// entries to cross the 0.8 load factor must not lose or corrupt any key.
func TestMapGrowsAtLoadFactor(t *testing.T) {
	m := &Map{}
	const n = 500
	for i := 0; i < n; i++ {
		m.Set(Number(float64(i)), Number(float64(i*2)))
	}
	for i := 0; i < n; i++ {
		got := m.Get(Number(float64(i)))
		if got.Kind != KindNumber || got.AsNumber() != float64(i*2) {
			t.Fatalf("Get(%d) = %#v, want %d", i, got, i*2)
		}
	}
	if m.Count() != n {
		t.Fatalf("expected count %d, got %d", n, m.Count())
	}
}

// TestMapShrinksNeverBelowMinCapacity exercises the other half of property
// 8: a large map drained back down must shrink but never below 64 slots.
func TestMapShrinksNeverBelowMinCapacity(t *testing.T) {
	m := &Map{}
	for i := 0; i < 500; i++ {
		m.Set(Number(float64(i)), Null)
	}
	for i := 0; i < 495; i++ {
		m.Remove(Number(float64(i)))
	}
	if m.SlotCount() < minMapCapacity {
		t.Fatalf("expected slot count never below %d, got %d", minMapCapacity, m.SlotCount())
	}
}

func TestHashableRejectsMutableObjects(t *testing.T) {
	if Hashable(FromObj(&List{})) {
		t.Error("List should not be hashable")
	}
	if !Hashable(Number(1)) || !Hashable(Null) || !Hashable(True) {
		t.Error("Number, Null, and Bool should be hashable")
	}
}

// TestHashBytesDeterministicAndPositionIndependent exercises property 7:
// hashing the same bytes twice (even assembled differently) must produce
// identical results, and unequal content must not collide trivially.
func TestHashBytesDeterministicAndPositionIndependent(t *testing.T) {
	a := HashBytes([]byte("hello world"))
	b := HashBytes(append(append([]byte{}, []byte("hello ")...), []byte("world")...))
	if a != b {
		t.Errorf("expected identical hashes for equal byte content, got %d != %d", a, b)
	}
	if HashBytes([]byte("hello world")) != HashBytes([]byte("hello world")) {
		t.Error("expected HashBytes to be a pure function of its input")
	}
}
