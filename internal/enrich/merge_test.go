package enrich

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gfscout/internal/model"
)

func km(v float64) *float64 { return &v }

func ids(places []model.Establishment) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.PlaceID
	}
	return out
}

func TestMerge_BerlinCafes(t *testing.T) {
	places := []model.Establishment{
		{PlaceID: "a", Name: "Glutenfrei Cafe"},
		{PlaceID: "b", Name: "City Cafe"},
	}

	got := Merge(places, map[string]model.GFStatus{
		"a": model.GFStatusDedicated,
		"b": model.GFStatusOffers,
	})
	require.Equal(t, []string{"a", "b"}, ids(got))
	assert.Equal(t, model.GFStatusDedicated, got[0].GFStatus)
	assert.Equal(t, model.GFStatusOffers, got[1].GFStatus)
}

func TestMerge_ClassifierFailureDefaultsToOffers(t *testing.T) {
	places := []model.Establishment{
		{PlaceID: "a", Name: "Glutenfrei Cafe"},
		{PlaceID: "b", Name: "City Cafe"},
	}

	got := Merge(places, map[string]model.GFStatus{})
	require.Equal(t, []string{"a", "b"}, ids(got))
	for _, p := range got {
		assert.Equal(t, model.GFStatusOffers, p.GFStatus)
	}

	assert.Equal(t, ids(got), ids(Merge(places, nil)))
}

func TestMerge_DropsUnclear(t *testing.T) {
	places := []model.Establishment{{PlaceID: "a"}, {PlaceID: "b"}, {PlaceID: "c"}}

	got := Merge(places, map[string]model.GFStatus{
		"a": model.GFStatusUnclear,
		"c": model.GFStatusUnclear,
	})
	assert.Equal(t, []string{"b"}, ids(got))
}

func TestMerge_AllUnclearIsEmpty(t *testing.T) {
	places := []model.Establishment{{PlaceID: "a"}}
	got := Merge(places, map[string]model.GFStatus{"a": model.GFStatusUnclear})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMerge_InvalidStatusDefaults(t *testing.T) {
	places := []model.Establishment{{PlaceID: "a"}}
	got := Merge(places, map[string]model.GFStatus{"a": "Probably"})
	require.Len(t, got, 1)
	assert.Equal(t, model.GFStatusOffers, got[0].GFStatus)
}

func TestMerge_SortsTierThenDistance(t *testing.T) {
	places := []model.Establishment{
		{PlaceID: "offers-far", DistanceKM: km(3.0)},
		{PlaceID: "dedicated-far", DistanceKM: km(5.0)},
		{PlaceID: "offers-near", DistanceKM: km(0.4)},
		{PlaceID: "dedicated-near", DistanceKM: km(1.2)},
		{PlaceID: "offers-unknown"},
	}
	statuses := map[string]model.GFStatus{
		"dedicated-far":  model.GFStatusDedicated,
		"dedicated-near": model.GFStatusDedicated,
	}

	got := Merge(places, statuses)
	assert.Equal(t, []string{
		"dedicated-near", "dedicated-far",
		"offers-near", "offers-far", "offers-unknown",
	}, ids(got))
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	places := []model.Establishment{
		{PlaceID: "b"},
		{PlaceID: "a"},
	}
	_ = Merge(places, map[string]model.GFStatus{"a": model.GFStatusDedicated})

	assert.Equal(t, []string{"b", "a"}, ids(places))
	assert.Empty(t, places[0].GFStatus)
	assert.Empty(t, places[1].GFStatus)
}

// TestMerge_Properties checks the ordering and filtering guarantees over
// random inputs.
func TestMerge_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tiers := []model.GFStatus{model.GFStatusDedicated, model.GFStatusOffers, model.GFStatusUnclear}

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(15)
		places := make([]model.Establishment, n)
		statuses := map[string]model.GFStatus{}
		for i := range places {
			id := fmt.Sprintf("p%d", i)
			places[i] = model.Establishment{PlaceID: id, DistanceKM: km(rng.Float64() * 10)}
			if rng.Intn(4) > 0 {
				statuses[id] = tiers[rng.Intn(len(tiers))]
			}
		}

		got := Merge(places, statuses)

		for i, p := range got {
			require.NotEqual(t, model.GFStatusUnclear, p.GFStatus)
			if _, ok := statuses[p.PlaceID]; !ok {
				require.Equal(t, model.GFStatusOffers, p.GFStatus)
			}
			if i == 0 {
				continue
			}
			prev := got[i-1]
			require.LessOrEqual(t, prev.GFStatus.Rank(), p.GFStatus.Rank())
			if prev.GFStatus == p.GFStatus {
				require.LessOrEqual(t, *prev.DistanceKM, *p.DistanceKM)
			}
		}

		kept := 0
		for _, p := range places {
			if statuses[p.PlaceID] != model.GFStatusUnclear {
				kept++
			}
		}
		require.Len(t, got, kept)
	}
}
