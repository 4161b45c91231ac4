package restaurant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceMetersBetween(t *testing.T) {
	require.Equal(t, 0.0, DistanceMetersBetween(1.3521, 103.8198, 1.3521, 103.8198))

	// Singapore city hall to Changi airport, roughly 17.5 km.
	d := DistanceMetersBetween(1.2931, 103.8520, 1.3644, 103.9915)
	require.InDelta(t, 17500, d, 1000)

	// Symmetric in its endpoints.
	require.InDelta(t, d, DistanceMetersBetween(1.3644, 103.9915, 1.2931, 103.8520), 1e-6)
}

func TestWithDistanceFromLeavesReceiverUntouched(t *testing.T) {
	r := Restaurant{PlaceID: "p1", Latitude: 1.30, Longitude: 103.80}

	annotated := r.WithDistanceFrom(1.31, 103.81)

	require.Nil(t, r.DistanceMeters)
	require.NotNil(t, annotated.DistanceMeters)
	require.Greater(t, *annotated.DistanceMeters, 0.0)
}
