package recognition

import (
	"math"
	"testing"
)

func TestDot(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if got := Dot(a, a); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("expected dot(a,a)=1.0, got %f", got)
	}
	if got := Dot(a, b); math.Abs(got) > 1e-6 {
		t.Errorf("expected dot(a,b)=0.0, got %f", got)
	}
	if got := Dot(a, []float32{1, 0}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)

	if math.Abs(Norm(n)-1.0) > 1e-6 {
		t.Errorf("expected unit length, got %f", Norm(n))
	}
	if v[0] != 3 || v[1] != 4 {
		t.Error("input vector must not be mutated")
	}
	if math.Abs(float64(n[0])-0.6) > 1e-6 || math.Abs(float64(n[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized values: %v", n)
	}
}

func TestNormalizeAlreadyUnit(t *testing.T) {
	v := []float32{1, 0, 0}
	n := Normalize(v)
	if n[0] != 1 || n[1] != 0 || n[2] != 0 {
		t.Errorf("unit vector should pass through unchanged, got %v", n)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	n := Normalize(make([]float32, 4))
	for i, x := range n {
		if x != 0 {
			t.Errorf("expected zero at %d, got %f", i, x)
		}
	}
}
