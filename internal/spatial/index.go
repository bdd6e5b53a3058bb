package spatial

import (
	"math"
	"sort"

	"github.com/rutagdl/ruta_core/internal/geo"
)

// DefaultCellSize is a reasonable grid cell for metropolitan stop densities.
const DefaultCellSize = 250.0 // meters

// Item is an indexed point.
type Item struct {
	ID    int64
	Point geo.Point
}

// Result is a query hit with its distance from the query point.
type Result struct {
	ID       int64
	Distance float64 // meters
}

type cellKey struct {
	cx, cy int
}

// Index is a uniform-grid spatial index over projected points. Built once at
// graph-load time, read-only afterwards; safe for concurrent queries.
type Index struct {
	cellSize float64
	cells    map[cellKey][]Item
}

// NewIndex builds an index over the given items.
func NewIndex(items []Item, cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	ix := &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Item),
	}
	for _, it := range items {
		key := ix.keyFor(it.Point)
		ix.cells[key] = append(ix.cells[key], it)
	}
	return ix
}

func (ix *Index) keyFor(p geo.Point) cellKey {
	return cellKey{
		cx: int(math.Floor(p.X / ix.cellSize)),
		cy: int(math.Floor(p.Y / ix.cellSize)),
	}
}

// Query returns every indexed item within radius meters of the point,
// ascending by distance. Ties are broken by ID so results are deterministic.
func (ix *Index) Query(p geo.Point, radius float64) []Result {
	if radius < 0 {
		return nil
	}

	span := int(math.Ceil(radius / ix.cellSize))
	center := ix.keyFor(p)

	var results []Result
	for cx := center.cx - span; cx <= center.cx+span; cx++ {
		for cy := center.cy - span; cy <= center.cy+span; cy++ {
			for _, it := range ix.cells[cellKey{cx, cy}] {
				d := geo.Dist(p, it.Point)
				if d <= radius {
					results = append(results, Result{ID: it.ID, Distance: d})
				}
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	return results
}
