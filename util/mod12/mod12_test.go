package mod12

import "testing"

func TestFromIntNegative(t *testing.T) {
	if got := FromInt(-1); got != 11 {
		t.Fatalf("FromInt(-1) = %d, want 11", got)
	}
}

func TestAddWraps(t *testing.T) {
	if got := AddMod12(9, 5); got != 2 {
		t.Fatalf("AddMod12(9,5) = %d, want 2", got)
	}
}

func TestSubWraps(t *testing.T) {
	if got := SubMod12(2, 5); got != 9 {
		t.Fatalf("SubMod12(2,5) = %d, want 9", got)
	}
}
