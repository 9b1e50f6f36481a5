package similarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float64
		wantOK bool
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1, wantOK: true},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1, wantOK: true},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0, wantOK: true},
		{name: "zero_vector", a: []float32{0, 0}, b: []float32{1, 1}, wantOK: false},
		{name: "empty", a: nil, b: nil, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cosine(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestCosineBoundsRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(64)
		a := make([]float32, n)
		b := make([]float32, n)
		for j := range a {
			a[j] = r.Float32()*2 - 1
			b[j] = r.Float32()*2 - 1
		}
		got, ok := Cosine(a, b)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, got, -1.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestCosineLengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		Cosine([]float32{1, 2}, []float32{1})
	})
}

func TestPercentAndClamp(t *testing.T) {
	assert.Equal(t, 87, Percent(0.866))
	assert.Equal(t, 60, Clamp(12, 60, 95))
	assert.Equal(t, 95, Clamp(99, 60, 95))
	assert.Equal(t, 70, Clamp(70, 60, 95))
}
