// Package enrich joins classifier output onto fetched establishments and
// produces the ordering users see.
package enrich

import (
	"sort"

	"github.com/sells-group/gfscout/internal/model"
)

// DefaultStatus is applied to establishments the classifier did not place.
const DefaultStatus = model.GFStatusOffers

// Merge attaches a tier to every establishment, drops StatusUnclear, and
// sorts dedicated places first, then by distance. The input slice is
// not modified. An empty result is a valid "no results" answer.
func Merge(places []model.Establishment, statuses map[string]model.GFStatus) []model.Establishment {
	out := make([]model.Establishment, 0, len(places))
	for _, p := range places {
		status, ok := statuses[p.PlaceID]
		if !ok || !status.Valid() {
			status = DefaultStatus
		}
		if status == model.GFStatusUnclear {
			continue
		}
		p.GFStatus = status
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].GFStatus.Rank(), out[j].GFStatus.Rank()
		if ri != rj {
			return ri < rj
		}
		return distance(out[i]) < distance(out[j])
	})
	return out
}

// distance sorts unmeasured places after measured ones; when nothing is
// measured every key is equal and the sort keeps prior order.
func distance(p model.Establishment) float64 {
	if p.DistanceKM == nil {
		return model.UnknownDistanceKM
	}
	return *p.DistanceKM
}
