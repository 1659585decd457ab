package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, 10, Clamp(42, 10, 0), "swapped bounds")
	assert.Equal(t, float32(110), Clamp(float32(200), 0, 110))
}

func TestFloor(t *testing.T) {
	assert.Equal(t, 0.0, Floor(-1.5, 0))
	assert.Equal(t, 3.5, Floor(3.5, 0))
}

func TestBetweenIsExclusive(t *testing.T) {
	assert.False(t, Between(65, 65, 255))
	assert.True(t, Between(66, 65, 255))
	assert.True(t, Between(254, 65, 255))
	assert.False(t, Between(255, 65, 255))
}
