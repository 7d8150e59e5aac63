package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
)

func templatePoints(center r2.Point, radius, rotation float64) []r2.Point {
	return unipuckTemplate.slotCenters(center, radius, rotation)
}

func angleDiff(a, b float64) float64 {
	return math.Abs(normalizeAngle(a - b))
}

func TestAlignUnipuck_TemplatePoints(t *testing.T) {
	points := templatePoints(r2.Point{X: 500, Y: 500}, 200, 0)
	require.Len(t, points, UnipuckSlots)

	g, err := AlignUnipuck(points)
	require.NoError(t, err)
	require.InDelta(t, 200, g.Radius(), 2)
	require.InDelta(t, 0, angleDiff(g.Rotation(), 0), 2*math.Pi/180)
	require.InDelta(t, 500, g.Center().X, 1)
	require.InDelta(t, 500, g.Center().Y, 1)
}

func TestAlignUnipuck_RotatedWithMissingPoints(t *testing.T) {
	rotation := 37 * math.Pi / 180
	all := templatePoints(r2.Point{X: 640, Y: 360}, 180, rotation)
	rng := rand.New(rand.NewSource(7))

	// Убираем по одной точке из каждого кольца и добавляем шум.
	var points []r2.Point
	for i, p := range all {
		if i == 2 || i == 9 || i == 13 {
			continue
		}
		points = append(points, r2.Point{X: p.X + rng.Float64() - 0.5, Y: p.Y + rng.Float64() - 0.5})
	}

	g, err := AlignUnipuck(points)
	require.NoError(t, err)
	require.InDelta(t, 180, g.Radius(), 180*0.02)
	require.Less(t, angleDiff(g.Rotation(), rotation), 2*math.Pi/180)

	for i, p := range all {
		require.Equal(t, i+1, g.ContainingSlot(p), "slot %d", i+1)
	}
}

func TestAlignUnipuck_PointCountLimits(t *testing.T) {
	points := templatePoints(r2.Point{X: 500, Y: 500}, 200, 0)

	_, err := AlignUnipuck(points[:5])
	require.ErrorIs(t, err, ErrTooFewPoints)

	extra := append(append([]r2.Point{}, points...), r2.Point{X: 10, Y: 10})
	_, err = AlignUnipuck(extra)
	require.ErrorIs(t, err, ErrTooManyPoints)
}

func TestAlignUnipuck_GridFailsToAlign(t *testing.T) {
	var points []r2.Point
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			points = append(points, r2.Point{X: 400 + float64(x)*100, Y: 400 + float64(y)*100})
		}
	}

	_, err := AlignUnipuck(points)
	require.ErrorIs(t, err, ErrAlignmentFailed)
}

func TestUnipuckGeometry_SlotsDoNotOverlap(t *testing.T) {
	for _, radius := range []float64{50, 200, 731} {
		for deg := -180.0; deg < 180; deg += 15 {
			g := NewUnipuck(r2.Point{X: 100, Y: 900}, radius, deg*math.Pi/180)
			for i := 1; i <= g.SlotCount(); i++ {
				for j := i + 1; j <= g.SlotCount(); j++ {
					require.False(t, g.SlotBounds(i).Intersects(g.SlotBounds(j)),
						"slots %d and %d overlap (radius %.0f, rotation %.0f)", i, j, radius, deg)
				}
			}
		}
	}
}

func TestAlignUnipuck_AlignedSlotsDoNotOverlap(t *testing.T) {
	all := templatePoints(r2.Point{X: 300, Y: 300}, 120, 1.1)
	for n := MinAlignPoints; n <= UnipuckSlots; n++ {
		g, err := AlignUnipuck(all[UnipuckSlots-n:])
		require.NoError(t, err, "points: %d", n)
		for i := 1; i <= g.SlotCount(); i++ {
			for j := i + 1; j <= g.SlotCount(); j++ {
				require.False(t, g.SlotBounds(i).Intersects(g.SlotBounds(j)))
			}
		}
	}
}

func TestUnipuckGeometry_OutOfRangeSlot(t *testing.T) {
	g := NewUnipuck(r2.Point{X: 0, Y: 0}, 100, 0)
	require.Equal(t, Circle{}, g.SlotBounds(0))
	require.Equal(t, Circle{}, g.SlotBounds(17))
	require.Equal(t, 0, g.ContainingSlot(r2.Point{X: 0, Y: 0}))
}

func TestPartitionRings(t *testing.T) {
	points := templatePoints(r2.Point{X: 0, Y: 0}, 100, 0.3)
	groups := partitionRings(points, r2.Point{})
	require.Len(t, groups, 2)
	require.Len(t, groups[0], 5)
	require.Len(t, groups[1], 11)
}
