package geodesic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noders-team/go-proxmc/pkg/sht"
)

func TestNewPath_RejectsBadLatitude(t *testing.T) {
	_, err := NewPath(95, 0, 0, 0)
	require.Error(t, err)
	_, err = NewPath(0, 0, -91, 10)
	require.Error(t, err)
}

func TestEpicentralDistance_Equator(t *testing.T) {
	p, err := NewPath(0, 0, 0, 90)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, p.EpicentralDistance(), 1e-12)
}

func TestEpicentralDistance_MatchesLawOfCosines(t *testing.T) {
	cases := [][4]float64{
		{45, 10, -30, 70},
		{10, 350, 20, 30},
		{-60, 120, 15, 200},
		{5, 0, 5, 1},
	}
	for _, c := range cases {
		p, err := NewPath(c[0], c[1], c[2], c[3])
		require.NoError(t, err)

		t1 := (90 - c[0]) * math.Pi / 180
		t2 := (90 - c[2]) * math.Pi / 180
		dlon := (c[3] - c[1]) * math.Pi / 180
		want := math.Acos(math.Cos(t1)*math.Cos(t2) + math.Sin(t1)*math.Sin(t2)*math.Cos(dlon))
		assert.InDelta(t, want, p.EpicentralDistance(), 1e-9, "case %v", c)
	}
}

func TestPointAt_Endpoints(t *testing.T) {
	p, err := NewPath(45, 10, -30, 70)
	require.NoError(t, err)

	start := p.PointAt(0)
	assert.InDelta(t, (90-45)*math.Pi/180, start.Colat, 1e-9)
	assert.InDelta(t, 10*math.Pi/180, start.Lon, 1e-9)

	stop := p.PointAt(1)
	assert.InDelta(t, (90+30)*math.Pi/180, stop.Colat, 1e-9)
	assert.InDelta(t, 70*math.Pi/180, stop.Lon, 1e-9)
}

func TestPointAt_EquatorMidpoint(t *testing.T) {
	p, err := NewPath(0, 0, 0, 90)
	require.NoError(t, err)
	mid := p.PointAt(0.5)
	assert.InDelta(t, math.Pi/2, mid.Colat, 1e-9)
	assert.InDelta(t, math.Pi/4, mid.Lon, 1e-9)
}

func TestPoints_CountAndSpacing(t *testing.T) {
	p, err := NewPath(20, 30, -40, 100)
	require.NoError(t, err)

	pts, err := p.Points(50)
	require.NoError(t, err)
	require.Len(t, pts, 50)

	_, err = p.Points(1)
	require.Error(t, err)
}

func TestPixelMask_InBounds(t *testing.T) {
	L := 16
	p, err := NewPath(45, 10, -30, 70)
	require.NoError(t, err)

	mask, err := p.PixelMask(L, 200)
	require.NoError(t, err)
	require.Len(t, mask, sht.SampleLength(L))

	var hits int
	for _, v := range mask {
		if v == 1 {
			hits++
		} else {
			assert.Zero(t, v)
		}
	}
	assert.Greater(t, hits, 0)
	assert.Less(t, hits, sht.SampleLength(L))
}
