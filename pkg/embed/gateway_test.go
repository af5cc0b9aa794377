package embed

import (
	"math"
	"testing"
)

func TestNormalizeUnitLength(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm² = %f, want 1.0", sum)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", vec)
	}
}

func TestNormalizeZeroVectorStaysFinite(t *testing.T) {
	vec := Normalize([]float32{0, 0, 0})
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Errorf("component %d = %f", i, v)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize([]float32{1, 2, 2})
	copied := make([]float32, len(once))
	copy(copied, once)
	twice := Normalize(copied)
	for i := range once {
		if math.Abs(float64(once[i]-twice[i])) > 1e-6 {
			t.Errorf("component %d changed on renormalization: %f vs %f", i, once[i], twice[i])
		}
	}
}

func TestCleanText(t *testing.T) {
	if got := cleanText(""); got != " " {
		t.Errorf("cleanText(\"\") = %q", got)
	}
	if got := cleanText("  \n "); got != " " {
		t.Errorf("cleanText(whitespace) = %q", got)
	}
	if got := cleanText("  hello "); got != "hello" {
		t.Errorf("cleanText trims, got %q", got)
	}
}
