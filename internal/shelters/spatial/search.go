// Package spatial filters shelters by a latitude/longitude bounding box and
// orders the result for discovery listings.
package spatial

import (
	"shelterbook/pkg/model"
	"sort"
	"strings"
)

// Box is a closed latitude/longitude rectangle.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundsQuery carries the optional bounds of a discovery request.
type BoundsQuery struct {
	MinLat *float64
	MaxLat *float64
	MinLon *float64
	MaxLon *float64
}

// Box returns the filter box and true only when all four bounds are set.
// Any missing bound disables the spatial filter.
func (q BoundsQuery) Box() (Box, bool) {
	if q.MinLat == nil || q.MaxLat == nil || q.MinLon == nil || q.MaxLon == nil {
		return Box{}, false
	}
	return Box{MinLat: *q.MinLat, MaxLat: *q.MaxLat, MinLon: *q.MinLon, MaxLon: *q.MaxLon}, true
}

// Search filters candidates by box (when present), orders them by name using
// byte-wise comparison with id as tie-breaker, and truncates to limit when
// limit > 0. The input slice is not modified.
func Search(candidates []*model.Shelter, box *Box, limit int) []*model.Shelter {
	result := make([]*model.Shelter, 0, len(candidates))
	for _, s := range candidates {
		if s == nil {
			continue
		}
		if box != nil && !box.Contains(s.Latitude, s.Longitude) {
			continue
		}
		result = append(result, s)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if c := strings.Compare(result[i].Name, result[j].Name); c != 0 {
			return c < 0
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
