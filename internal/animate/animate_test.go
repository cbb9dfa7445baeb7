package animate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEaseBounds(t *testing.T) {
	assert.Equal(t, 0.0, Ease(0))
	assert.Equal(t, 1.0, Ease(1))
}

func TestEaseMonotonic(t *testing.T) {
	prev := Ease(0)
	for i := 1; i <= 1000; i++ {
		v := Ease(float64(i) / 1000)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestHelpersSettleAtDuration(t *testing.T) {
	for _, f := range []int{25, 26, 50, 374} {
		assert.Equal(t, 40.0, FromLeft(f, 25, 40, 0))
		assert.Equal(t, 40.0, FromLeft(f, 25, 40, 300))
		assert.Equal(t, 40.0, FromRight(f, 25, 40, 200, 1080))
		assert.Equal(t, 120.0, FromTop(f, 25, 120, 0))
		assert.Equal(t, 120.0, FromBottom(f, 25, 120, 80, 1920))
		assert.Equal(t, 1.0, Opacity(f, 25, 0))
		assert.Equal(t, 1.0, Opacity(f, 25, 10))
		assert.Equal(t, 300.0, Up(f, 25, 300, 50))
		assert.Equal(t, 300.0, Down(f, 25, 300, 50))
		assert.Equal(t, 600.0, Width(f, 25, 600))
	}
}

func TestStartPositions(t *testing.T) {
	assert.Equal(t, -40.0, FromLeft(0, 25, 40, 0))
	assert.Equal(t, 1080.0, FromRight(0, 25, 40, 200, 1080))
	assert.Equal(t, 0.0, Opacity(0, 25, 0))
	assert.Equal(t, 0.0, Opacity(5, 25, 10))
	assert.Equal(t, 350.0, Up(0, 25, 300, 50))
	assert.Equal(t, 250.0, Down(0, 25, 300, 50))
	assert.Equal(t, 0.0, Width(0, 25, 600))
}

func TestDeterministic(t *testing.T) {
	assert.Equal(t, FromLeft(12, 50, 540, 0), FromLeft(12, 50, 540, 0))
}
