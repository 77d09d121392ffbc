package bytecode

import "testing"

func TestCallOpRoundTrip(t *testing.T) {
	for n := 0; n <= 16; n++ {
		op := CallOp(n)
		if !IsCall(op) {
			t.Fatalf("CallOp(%d) = %v, not recognized as a call", n, op)
		}
		if got := ArgCountOfCall(op); got != n {
			t.Errorf("ArgCountOfCall(CallOp(%d)) = %d, want %d", n, got, n)
		}
	}
}

func TestSuperOpRoundTrip(t *testing.T) {
	for n := 0; n <= 16; n++ {
		op := SuperOp(n)
		if !IsSuper(op) {
			t.Fatalf("SuperOp(%d) = %v, not recognized as a super call", n, op)
		}
		if got := ArgCountOfSuper(op); got != n {
			t.Errorf("ArgCountOfSuper(SuperOp(%d)) = %d, want %d", n, got, n)
		}
	}
}

func TestU16RoundTrip(t *testing.T) {
	code := make([]byte, 2)
	WriteU16(code, 0, 0xBEEF)
	if got := ReadU16(code, 0); got != 0xBEEF {
		t.Errorf("ReadU16 = %#x, want 0xBEEF", got)
	}
}

func TestOperandBytesFixedWidth(t *testing.T) {
	code := []byte{byte(LoadConstant), 0, 1}
	if w := OperandBytes(LoadConstant, code, 1, nil); w != 2 {
		t.Errorf("OperandBytes(LoadConstant) = %d, want 2", w)
	}
	if w := OperandBytes(Pop, nil, 0, nil); w != 0 {
		t.Errorf("OperandBytes(Pop) = %d, want 0", w)
	}
}

func TestOperandBytesCreateClosureUsesLookup(t *testing.T) {
	code := []byte{byte(CreateClosure), 0, 5}
	lookup := func(idx uint16) int {
		if idx != 5 {
			t.Fatalf("lookup called with %d, want 5", idx)
		}
		return 3
	}
	if w := OperandBytes(CreateClosure, code, 0, lookup); w != 2+2*3 {
		t.Errorf("OperandBytes(CreateClosure) = %d, want %d", w, 2+2*3)
	}
}

func TestStackDeltaCallsScaleWithArgCount(t *testing.T) {
	if d := StackDelta(CallOp(0)); d != 0 {
		t.Errorf("StackDelta(Call0) = %d, want 0", d)
	}
	if d := StackDelta(CallOp(3)); d != -3 {
		t.Errorf("StackDelta(Call3) = %d, want -3", d)
	}
}
