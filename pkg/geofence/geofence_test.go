package geofence

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		mission string
		radius  float64
		inRange bool
		minDist int
		maxDist int
	}{
		{name: "same point", user: "51.5007,-0.1246", mission: "51.5007,-0.1246", radius: 100, inRange: true, minDist: 0, maxDist: 0},
		{name: "about 55m north", user: "51.5012,-0.1246", mission: "51.5007,-0.1246", radius: 100, inRange: true, minDist: 54, maxDist: 57},
		{name: "about 1.1km away", user: "51.5107,-0.1246", mission: "51.5007,-0.1246", radius: 100, inRange: false, minDist: 1100, maxDist: 1115},
		{name: "default radius", user: "51.5015,-0.1246", mission: "51.5007,-0.1246", radius: 0, inRange: true, minDist: 87, maxDist: 91},
		{name: "whitespace tolerated", user: " 51.5007 , -0.1246 ", mission: "51.5007,-0.1246", radius: 10, inRange: true, minDist: 0, maxDist: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Validate(tc.user, tc.mission, tc.radius)
			require.NoError(t, err)
			assert.Equal(t, tc.inRange, res.InRange)
			assert.GreaterOrEqual(t, res.DistanceMeters, tc.minDist)
			assert.LessOrEqual(t, res.DistanceMeters, tc.maxDist)
		})
	}
}

func TestValidateRejectsBadCoordinates(t *testing.T) {
	for _, raw := range []string{"", "51.5", "abc,1", "1,2,3", "NaN,1", "1,Inf"} {
		_, err := Validate(raw, "0,0", 100)
		require.Error(t, err, raw)
		assert.True(t, stdErrors.Is(err, appErrors.ErrInvalidCoordinates), raw)

		_, err = Validate("0,0", raw, 100)
		assert.True(t, stdErrors.Is(err, appErrors.ErrInvalidCoordinates), raw)
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Point{Lat: -6.2, Lng: 106.8}
	b := Point{Lat: -6.21, Lng: 106.85}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}
