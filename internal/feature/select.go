package feature

import "go.uber.org/zap"

// SelectInTerritory returns the features of c that intersect any feature of
// territory. Candidates are found with an R-tree and then tested exactly.
func SelectInTerritory(c, territory *Collection) *Collection {
	index := NewIndex(c)
	selected := make(map[int]struct{})
	for _, area := range territory.Features {
		if area.Geometry == nil || area.Geometry.Empty() {
			continue
		}
		for _, candidate := range index.Search(area.Geometry.Bounds()) {
			if _, ok := selected[candidate]; ok {
				continue
			}
			if Intersects(c.Features[candidate].Geometry, area.Geometry) {
				selected[candidate] = struct{}{}
			}
		}
	}

	indexes := make([]int, 0, len(selected))
	for i := range c.Features {
		if _, ok := selected[i]; ok {
			indexes = append(indexes, i)
		}
	}
	zap.L().Info("selected features in territory",
		zap.Int("input", c.Len()),
		zap.Int("selected", len(indexes)),
	)
	return c.Subset(indexes)
}

// AssignNearest sets the property attribute of every feature of c to the
// value of the same property of the reference feature nearest to its
// centroid. It returns the number of features that could not be assigned.
func AssignNearest(c, reference *Collection, attribute string) int {
	index := NewIndex(reference)
	unassigned := 0
	for _, feature := range c.Features {
		centroid, ok := Centroid(feature.Geometry)
		if !ok {
			unassigned++
			continue
		}
		nearest, ok := index.Nearest(centroid, 8)
		if !ok {
			unassigned++
			continue
		}
		value, ok := reference.Features[nearest].Properties[attribute]
		if !ok {
			unassigned++
			continue
		}
		feature.SetProperty(attribute, value)
	}
	if unassigned > 0 {
		zap.L().Warn("features without nearest neighbor",
			zap.String("attribute", attribute),
			zap.Int("count", unassigned),
		)
	}
	return unassigned
}
