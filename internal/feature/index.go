package feature

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"
)

// epsilon is the minimum side length of an indexed bounding box.
const epsilon = 1e-9

// An Index is an R-tree over the geometries of a Collection.
type Index struct {
	collection *Collection
	tree       *rtreego.Rtree
}

// An indexedFeature wraps a feature index for R-tree storage.
type indexedFeature struct {
	index int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return f.rect
}

// NewIndex returns a new Index over the features of c. Features without a
// geometry are not indexed.
func NewIndex(c *Collection) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for i, feature := range c.Features {
		if feature.Geometry == nil || feature.Geometry.Empty() {
			continue
		}
		rect, ok := boundsRect(feature.Geometry.Bounds())
		if !ok {
			continue
		}
		tree.Insert(&indexedFeature{
			index: i,
			rect:  rect,
		})
	}
	return &Index{
		collection: c,
		tree:       tree,
	}
}

// Len returns the number of indexed features.
func (i *Index) Len() int {
	return i.tree.Size()
}

// Search returns the sorted indexes of the features whose bounds intersect
// bounds.
func (i *Index) Search(bounds *geom.Bounds) []int {
	rect, ok := boundsRect(bounds)
	if !ok {
		return nil
	}
	spatials := i.tree.SearchIntersect(rect)
	indexes := make([]int, 0, len(spatials))
	for _, spatial := range spatials {
		indexes = append(indexes, spatial.(*indexedFeature).index)
	}
	slices.Sort(indexes)
	return indexes
}

// Nearest returns the index of the feature nearest to coord. Candidates are
// found by bounding box distance, starting with candidates of them, and ranked
// by exact distance. The candidate set is doubled until the farthest
// candidate's bounding box is farther than the nearest exact distance.
func (i *Index) Nearest(coord geom.Coord, candidates int) (int, bool) {
	size := i.tree.Size()
	if size == 0 {
		return 0, false
	}
	point := rtreego.Point{coord[0], coord[1]}
	for k := max(candidates, 1); ; k *= 2 {
		spatials := i.tree.NearestNeighbors(k, point)
		nearest, nearestDistance := -1, math.Inf(1)
		farthestBoundsDistance := 0.0
		for _, spatial := range spatials {
			if spatial == nil {
				continue
			}
			indexed := spatial.(*indexedFeature)
			farthestBoundsDistance = max(farthestBoundsDistance, rectDistance(point, indexed.rect))
			distance := Distance(coord, i.collection.Features[indexed.index].Geometry)
			if distance < nearestDistance || (distance == nearestDistance && indexed.index < nearest) {
				nearest, nearestDistance = indexed.index, distance
			}
		}
		if len(spatials) < k || k >= size || farthestBoundsDistance > nearestDistance {
			return nearest, nearest >= 0
		}
	}
}

// rectDistance returns the distance from point to rect.
func rectDistance(point rtreego.Point, rect rtreego.Rect) float64 {
	sum := 0.0
	for i, p := range point {
		lower := rect.PointCoord(i)
		upper := lower + rect.LengthsCoord(i)
		switch {
		case p < lower:
			sum += (lower - p) * (lower - p)
		case p > upper:
			sum += (p - upper) * (p - upper)
		}
	}
	return math.Sqrt(sum)
}

// boundsRect returns bounds as an rtreego.Rect with non-zero side lengths.
func boundsRect(bounds *geom.Bounds) (rtreego.Rect, bool) {
	if bounds == nil || bounds.IsEmpty() {
		return rtreego.Rect{}, false
	}
	point := rtreego.Point{bounds.Min(0), bounds.Min(1)}
	lengths := []float64{
		max(bounds.Max(0)-bounds.Min(0), epsilon),
		max(bounds.Max(1)-bounds.Min(1), epsilon),
	}
	rect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}
