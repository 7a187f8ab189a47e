package listaction

import "testing"

func TestDeleteShiftsSelectionDown(t *testing.T) {
	vec := []int{10, 20, 30}
	selected := 2
	hasSelected := true
	ApplyTo(Action{Kind: Delete, Index: 0}, func(x int) int { return x }, &vec, &selected, &hasSelected)
	if len(vec) != 2 || vec[0] != 20 {
		t.Fatalf("unexpected vec after delete: %v", vec)
	}
	if selected != 1 {
		t.Fatalf("selected = %d, want 1", selected)
	}
}

func TestSwapWithPrevTracksSelection(t *testing.T) {
	vec := []int{1, 2, 3}
	selected := 1
	hasSelected := true
	ApplyTo(Action{Kind: SwapWithPrev, Index: 1}, func(x int) int { return x }, &vec, &selected, &hasSelected)
	if vec[0] != 2 || vec[1] != 1 {
		t.Fatalf("unexpected vec after swap: %v", vec)
	}
	if selected != 0 {
		t.Fatalf("selected = %d, want 0", selected)
	}
}

func TestCloneAppendsAndSelectsNew(t *testing.T) {
	vec := []int{5, 6}
	selected := 0
	hasSelected := true
	ApplyTo(Action{Kind: Clone, Index: 0}, func(x int) int { return x }, &vec, &selected, &hasSelected)
	if len(vec) != 3 || vec[2] != 5 {
		t.Fatalf("unexpected vec after clone: %v", vec)
	}
	if selected != 2 {
		t.Fatalf("selected = %d, want 2", selected)
	}
}

func TestDeselect(t *testing.T) {
	vec := []int{1}
	selected := 0
	hasSelected := true
	ApplyTo(Action{Kind: Deselect}, func(x int) int { return x }, &vec, &selected, &hasSelected)
	if hasSelected {
		t.Fatalf("expected hasSelected false")
	}
}
