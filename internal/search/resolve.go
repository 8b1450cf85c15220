package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/pkg/google"
)

// CityResolver turns a city name into coordinates through the places
// provider's find-place lookup.
type CityResolver struct {
	client google.Client
}

// NewCityResolver creates a CityResolver.
func NewCityResolver(client google.Client) *CityResolver {
	return &CityResolver{client: client}
}

// Resolve returns the first candidate's location. ErrValidation marks an
// empty name and ErrNotFound an unresolvable one.
func (r *CityResolver) Resolve(ctx context.Context, city string) (model.Coordinates, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return model.Coordinates{}, eris.Wrap(ErrValidation, "city is required")
	}

	resp, err := r.client.FindPlace(ctx, city)
	if err != nil {
		if err := timedOut(ctx); err != nil {
			return model.Coordinates{}, err
		}
		return model.Coordinates{}, eris.Wrapf(err, "search: resolve %s", city)
	}

	switch resp.Status {
	case google.StatusOK:
	case google.StatusZeroResults:
		return model.Coordinates{}, eris.Wrapf(ErrNotFound, "city %q not found", city)
	default:
		return model.Coordinates{}, eris.Errorf("search: resolve %s: provider status %s %s", city, resp.Status, resp.ErrorMessage)
	}

	for _, c := range resp.Candidates {
		if loc := c.Geometry.Location; loc != nil {
			return model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
		}
	}
	return model.Coordinates{}, eris.Wrapf(ErrNotFound, "city %q not found", city)
}
