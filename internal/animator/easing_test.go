package animator

import (
	"math"
	"slices"
	"testing"
)

func TestEasingLookup(t *testing.T) {
	linear, err := Easing("")
	if err != nil {
		t.Fatalf("Easing(\"\"): %v", err)
	}
	if linear(0.3) != 0.3 {
		t.Fatalf("empty name must be linear, got %v", linear(0.3))
	}

	for _, name := range EasingNames() {
		fn, err := Easing(name)
		if err != nil {
			t.Fatalf("Easing(%q): %v", name, err)
		}
		if math.Abs(fn(0)) > 1e-9 || math.Abs(fn(1)-1) > 1e-9 {
			t.Errorf("%s must map 0->0 and 1->1, got %v and %v", name, fn(0), fn(1))
		}
	}

	if fn, err := Easing(" In-Out-Quad "); err != nil || fn(0.5) != 0.5 {
		t.Fatalf("case-insensitive lookup failed: err=%v", err)
	}
	if _, err := Easing("wobble"); err == nil {
		t.Fatal("expected error for unknown easing")
	}
}

func TestEasingNamesSorted(t *testing.T) {
	names := EasingNames()
	if !slices.IsSorted(names) || !slices.Contains(names, "linear") {
		t.Fatalf("names = %v", names)
	}
}
