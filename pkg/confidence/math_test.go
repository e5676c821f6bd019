package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(nil))
	assert.Equal(t, 0.9, Aggregate([]float64{0.9}))
	assert.Equal(t, 0.0, Aggregate([]float64{0.9, 0}))
	assert.InDelta(t, 0.8485, Aggregate([]float64{0.9, 0.8}), 0.001)
}

func TestForSources(t *testing.T) {
	assert.InDelta(t, HighConfidence, ForSources(true, true), 1e-9)
	assert.Equal(t, LowConfidence, ForSources(false))
	assert.InDelta(t, 0.755, ForSources(true, false), 0.001)

	mixed := ForSources(true, false)
	assert.Less(t, mixed, ForSources(true, true))
	assert.Greater(t, mixed, ForSources(false, false))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.5))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, 0.7, Clamp(0.7))
}
