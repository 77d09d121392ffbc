package value

import "testing"

func TestEqualNumbersByValue(t *testing.T) {
	if !Equal(Number(1), Number(1)) {
		t.Error("expected equal numbers to compare equal")
	}
	if Equal(Number(1), Number(2)) {
		t.Error("expected unequal numbers to compare unequal")
	}
}

func TestEqualStringsByContent(t *testing.T) {
	h := NewHeap()
	a := h.NewString("abc")
	b := h.NewString("abc")
	if a == b {
		t.Fatal("test setup: expected two distinct String objects")
	}
	if !Equal(FromObj(a), FromObj(b)) {
		t.Error("expected strings with equal content to compare equal")
	}
}

func TestEqualRangesByBounds(t *testing.T) {
	h := NewHeap()
	a := h.NewRange(1, 5)
	b := h.NewRange(1, 5)
	c := h.NewRange(1, 6)
	if !Equal(FromObj(a), FromObj(b)) {
		t.Error("expected ranges with equal bounds to compare equal")
	}
	if Equal(FromObj(a), FromObj(c)) {
		t.Error("expected ranges with different bounds to compare unequal")
	}
}

func TestEqualOtherObjectsByIdentity(t *testing.T) {
	h := NewHeap()
	a := h.NewList()
	b := h.NewList()
	if Equal(FromObj(a), FromObj(b)) {
		t.Error("expected distinct List objects to compare unequal")
	}
	if !Equal(FromObj(a), FromObj(a)) {
		t.Error("expected a List to equal itself")
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", Number(0), true},
		{"empty string object", FromObj(NewHeap().NewString("")), true},
	}
	for _, tt := range tests {
		if got := tt.v.IsTruthy(); got != tt.want {
			t.Errorf("%s: IsTruthy() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassOfPrimitive(t *testing.T) {
	h := NewHeap()
	h.BuiltinClasses["Null"] = h.NewClass(h.NewString("Null"), false)
	h.BuiltinClasses["Bool"] = h.NewClass(h.NewString("Bool"), false)
	h.BuiltinClasses["Number"] = h.NewClass(h.NewString("Number"), false)

	if c := ClassOfPrimitive(h, Null); c != h.BuiltinClasses["Null"] {
		t.Error("expected Null to resolve to the Null class")
	}
	if c := ClassOfPrimitive(h, True); c != h.BuiltinClasses["Bool"] {
		t.Error("expected True to resolve to the Bool class")
	}
	if c := ClassOfPrimitive(h, Number(1)); c != h.BuiltinClasses["Number"] {
		t.Error("expected a Number to resolve to the Number class")
	}
	if c := ClassOfPrimitive(h, Undefined); c != nil {
		t.Error("expected Undefined to have no primitive class")
	}
}
