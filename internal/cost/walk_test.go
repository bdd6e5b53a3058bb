package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkDuration(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		mode     WalkMode
		expected float64
	}{
		{
			name:     "300m on path at 5 km/h",
			distance: 300,
			mode:     WalkOnPath,
			expected: 216,
		},
		{
			name:     "1km on path",
			distance: 1000,
			mode:     WalkOnPath,
			expected: 720,
		},
		{
			name:     "300m direct at 3 km/h",
			distance: 300,
			mode:     WalkDirect,
			expected: 360,
		},
		{
			name:     "Zero distance",
			distance: 0,
			mode:     WalkOnPath,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := WalkDuration(tt.distance, tt.mode)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 0.01)
		})
	}
}

func TestWalkDurationNegativeDistance(t *testing.T) {
	_, err := WalkDuration(-5, WalkOnPath)
	assert.ErrorIs(t, err, ErrInvalidDistance)

	_, err = WalkDuration(-0.001, WalkDirect)
	assert.ErrorIs(t, err, ErrInvalidDistance)
}

func TestDirectSlowerThanOnPath(t *testing.T) {
	onPath, err := WalkDuration(500, WalkOnPath)
	require.NoError(t, err)
	direct, err := WalkDuration(500, WalkDirect)
	require.NoError(t, err)

	assert.Greater(t, direct, onPath)
}
