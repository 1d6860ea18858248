// Package geodesic traces great-circle paths on the sphere and rasterises
// them onto the sampling grid used by the transforms. The spherical
// trigonometry follows the classic navigation formulae: course angles at
// the endpoints and at the ascending node, epicentral distance, and
// waypoints parameterised by arc fraction along the minor arc.
package geodesic

import (
	"fmt"
	"math"

	"github.com/noders-team/go-proxmc/pkg/sht"
)

// Point is a position on the sphere in radians: colatitude in [0, pi],
// longitude in [0, 2 pi).
type Point struct {
	Colat float64
	Lon   float64
}

// Path is the minor great-circle arc between two endpoints.
type Path struct {
	start Point
	stop  Point
}

// NewPath builds a path from endpoints given as (lat, lon) in degrees,
// the convention seismic catalogues use.
func NewPath(startLat, startLon, stopLat, stopLon float64) (*Path, error) {
	if math.Abs(startLat) > 90 || math.Abs(stopLat) > 90 {
		return nil, fmt.Errorf("latitude out of range: start %g, stop %g", startLat, stopLat)
	}
	p := &Path{
		start: Point{Colat: deg2rad(90 - startLat), Lon: deg2rad(startLon)},
		stop:  Point{Colat: deg2rad(90 - stopLat), Lon: deg2rad(stopLon)},
	}
	return p, nil
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}

// lonDiff is the longitude difference stop-start wrapped to (-pi, pi].
func (p *Path) lonDiff() float64 {
	d := p.stop.Lon - p.start.Lon
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// courseAtStart is the initial bearing from start towards stop.
func (p *Path) courseAtStart() float64 {
	t1, t2 := p.start.Colat, p.stop.Colat
	dlon := p.lonDiff()
	num := math.Sin(t2) * math.Sin(dlon)
	den := math.Sin(t1)*math.Cos(t2) - math.Cos(t1)*math.Sin(t2)*math.Cos(dlon)
	return math.Atan2(num, den)
}

// courseAtNode is the bearing where the great circle crosses the equator
// northwards.
func (p *Path) courseAtNode() float64 {
	a1 := p.courseAtStart()
	t1 := p.start.Colat
	num := math.Sin(a1) * math.Sin(t1)
	den := math.Sqrt(math.Cos(a1)*math.Cos(a1) + math.Sin(a1)*math.Sin(a1)*math.Cos(t1)*math.Cos(t1))
	return math.Atan2(num, den)
}

// EpicentralDistance returns the arc length between the endpoints in
// radians.
func (p *Path) EpicentralDistance() float64 {
	t1, t2 := p.start.Colat, p.stop.Colat
	dlon := p.lonDiff()
	num := math.Sqrt(
		math.Pow(math.Sin(t1)*math.Cos(t2)-math.Cos(t1)*math.Sin(t2)*math.Cos(dlon), 2) +
			math.Pow(math.Sin(t2)*math.Sin(dlon), 2))
	den := math.Cos(t1)*math.Cos(t2) + math.Sin(t1)*math.Sin(t2)*math.Cos(dlon)
	return math.Atan2(num, den)
}

// nodeToStart is the arc length from the ascending node to the start
// point.
func (p *Path) nodeToStart() float64 {
	a1 := p.courseAtStart()
	t1 := p.start.Colat
	return math.Atan2(math.Tan(math.Pi/2-t1), math.Cos(a1))
}

// nodeLon is the longitude of the ascending node.
func (p *Path) nodeLon() float64 {
	a0 := p.courseAtNode()
	s01 := p.nodeToStart()
	dlon := math.Atan2(math.Sin(a0)*math.Sin(s01), math.Cos(s01))
	return p.start.Lon - dlon
}

// PointAt returns the position a fraction frac in [0, 1] along the minor
// arc from start to stop.
func (p *Path) PointAt(frac float64) Point {
	dist := p.nodeToStart() + frac*p.EpicentralDistance()
	return Point{
		Colat: p.colatAt(dist),
		Lon:   normLon(p.lonAt(dist)),
	}
}

func (p *Path) colatAt(dist float64) float64 {
	a0 := p.courseAtNode()
	num := math.Cos(a0) * math.Sin(dist)
	den := math.Sqrt(math.Cos(dist)*math.Cos(dist) + math.Sin(a0)*math.Sin(a0)*math.Sin(dist)*math.Sin(dist))
	return math.Pi/2 - math.Atan2(num, den)
}

func (p *Path) lonAt(dist float64) float64 {
	a0 := p.courseAtNode()
	return math.Atan2(math.Sin(a0)*math.Sin(dist), math.Cos(dist)) + p.nodeLon()
}

func normLon(lon float64) float64 {
	lon = math.Mod(lon, 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	return lon
}

// Points discretises the minor arc into n evenly spaced positions,
// endpoints included.
func (p *Path) Points(n int) ([]Point, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", n)
	}
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = p.PointAt(float64(i) / float64(n-1))
	}
	return pts, nil
}

// PixelIndices maps the discretised path onto the band-limit L sampling
// grid, returning the de-duplicated sample indices the arc crosses.
func (p *Path) PixelIndices(L, npoints int) ([]int, error) {
	pts, err := p.Points(npoints)
	if err != nil {
		return nil, err
	}
	thetas := sht.Thetas(L)
	nphi := 2*L - 1

	seen := make(map[int]struct{})
	var idxs []int
	for _, pt := range pts {
		r := nearestRing(thetas, pt.Colat)
		pIdx := int(math.Round(pt.Lon*float64(nphi)/(2*math.Pi))) % nphi
		idx := r*nphi + pIdx
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			idxs = append(idxs, idx)
		}
	}
	return idxs, nil
}

// PixelMask rasterises the path into an indicator map over the band-limit
// L grid.
func (p *Path) PixelMask(L, npoints int) ([]float64, error) {
	idxs, err := p.PixelIndices(L, npoints)
	if err != nil {
		return nil, err
	}
	mask := make([]float64, sht.SampleLength(L))
	for _, idx := range idxs {
		mask[idx] = 1
	}
	return mask, nil
}

func nearestRing(thetas []float64, colat float64) int {
	best := 0
	bestDist := math.Abs(thetas[0] - colat)
	for r := 1; r < len(thetas); r++ {
		if d := math.Abs(thetas[r] - colat); d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}
