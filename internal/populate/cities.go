package populate

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gfscout/internal/fetcher"
	"github.com/sells-group/gfscout/internal/geo"
)

//go:embed cities.csv
var defaultCities []byte

// City is one populate target.
type City struct {
	Name    string
	Country string
}

// Query is the "Name, Country" form sent to the city lookup.
func (c City) Query() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}

// LoadCities reads a cities file, or the built-in list when path is empty.
func LoadCities(ctx context.Context, path string) ([]City, error) {
	if path == "" {
		return ReadCities(ctx, bytes.NewReader(defaultCities))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "populate: open cities file %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCities(ctx, f)
}

// ReadCities parses "city[, country]" lines. '#' starts a comment, blank
// lines are skipped and repeated cities are kept once.
func ReadCities(ctx context.Context, r io.Reader) ([]City, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Comment:    '#',
		TrimSpace:  true,
		LazyQuotes: true,
	})

	var cities []City
	seen := make(map[string]bool)
	for row := range rowCh {
		c := City{Name: row[0]}
		if len(row) > 1 {
			c.Country = strings.Join(row[1:], ", ")
		}
		if c.Name == "" {
			continue
		}
		key := geo.NormalizeCity(c.Query())
		if seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, c)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "populate: read cities")
	}
	return cities, nil
}
