package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAffineInverseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tf   AffineTransform
	}{
		{"identity", Identity()},
		{"translation", Translation(12.5, -40)},
		{"zoom and pan", Translation(33, 7).Compose(Scale(2.5, 2.5))},
		{"small zoom", Translation(-300, 120).Compose(Scale(0.1, 0.1))},
	}

	points := []Point2D{{0, 0}, {10, 20}, {-5.5, 100.25}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, ok := tc.tf.Inverse()
			if !ok {
				t.Fatalf("expected %v to be invertible", tc.tf)
			}
			for _, p := range points {
				back := inv.Apply(tc.tf.Apply(p))
				if !almostEqual(back.X, p.X) || !almostEqual(back.Y, p.Y) {
					t.Errorf("expected %v after round trip, got %v", p, back)
				}
			}
		})
	}
}

func TestAffineInverseSingular(t *testing.T) {
	if _, ok := Scale(0, 1).Inverse(); ok {
		t.Error("expected a zero-scale transform to be singular")
	}
}

func TestRectIntersect(t *testing.T) {
	a := NewRect(0, 0, 100, 50)
	b := NewRect(80, 40, 100, 100)

	got := a.Intersect(b)
	want := NewRect(80, 40, 20, 10)
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	miss := a.Intersect(NewRect(200, 200, 5, 5))
	if miss.Width != 0 || miss.Height != 0 {
		t.Errorf("expected empty intersection, got %v", miss)
	}
}

func TestSizeEmpty(t *testing.T) {
	if !NewSize(0, 10).Empty() {
		t.Error("expected zero width to be empty")
	}
	if !NewSize(10, math.NaN()).Empty() {
		t.Error("expected NaN height to be empty")
	}
	if NewSize(1, 1).Empty() {
		t.Error("expected 1x1 to be non-empty")
	}
}
