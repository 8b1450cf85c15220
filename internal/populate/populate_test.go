package populate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/fetcher"
	"github.com/sells-group/gfscout/internal/model"
)

type backend struct {
	mu       sync.Mutex
	searches []string
	coords   map[string]model.Coordinates
	empty    map[string]bool
	broken   map[string]bool
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch r.URL.Path {
	case "/find-city-coordinates":
		c, ok := b.coords[q.Get("city")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	case "/get-restaurants":
		b.mu.Lock()
		b.searches = append(b.searches, q.Get("city")+"|"+q.Get("country")+"|"+q.Get("type")+"|"+q.Get("lat")+","+q.Get("lon"))
		b.mu.Unlock()

		switch {
		case b.empty[q.Get("type")]:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no bakeries found"}`))
		case b.broken[q.Get("type")]:
			_, _ = w.Write([]byte(`not json`))
		default:
			_, _ = w.Write([]byte(`{"raw_data":[{"place_id":"a"},{"place_id":"b"}]}`))
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newBackend() *backend {
	return &backend{
		coords: map[string]model.Coordinates{
			"Berlin, Germany": {Lat: 52.52, Lng: 13.405},
			"Paris, France":   {Lat: 48.8566, Lng: 2.3522},
		},
		empty:  map[string]bool{},
		broken: map[string]bool{},
	}
}

func testFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, BaseBackoff: time.Millisecond})
}

type memArchive struct {
	mu   sync.Mutex
	keys map[string][]byte
	err  error
}

func (m *memArchive) Put(_ context.Context, city string, typ model.SearchType, payload []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	key := city + "/" + string(typ)
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = payload
	return true, nil
}

func TestRun_AllTypesPerCity(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b)
	defer srv.Close()

	r := New(testFetcher(), srv.URL+"/", WithCityPause(0))
	sum, err := r.Run(context.Background(), []City{{Name: "Berlin", Country: "Germany"}})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Cities)
	assert.Equal(t, 1, sum.CitiesResolved)
	assert.Equal(t, 3, sum.Searches)
	assert.Equal(t, 6, sum.Places)
	assert.Zero(t, sum.Failed)

	assert.ElementsMatch(t, []string{
		"Berlin|Germany|restaurants|52.52,13.405",
		"Berlin|Germany|cafes|52.52,13.405",
		"Berlin|Germany|bakery|52.52,13.405",
	}, b.searches)
}

func TestRun_SkipsUnresolvedCity(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b)
	defer srv.Close()

	r := New(testFetcher(), srv.URL, WithCityPause(0), WithTypes(model.SearchTypeCafes))
	sum, err := r.Run(context.Background(), []City{{Name: "Atlantis"}, {Name: "Paris", Country: "France"}})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Cities)
	assert.Equal(t, 1, sum.CitiesResolved)
	assert.Equal(t, []string{"Atlantis"}, sum.FailedCities)
	assert.Equal(t, []string{"Paris|France|cafes|48.8566,2.3522"}, b.searches)
}

func TestRun_CountsEmptyAndFailed(t *testing.T) {
	b := newBackend()
	b.empty["bakery"] = true
	b.broken["cafes"] = true
	srv := httptest.NewServer(b)
	defer srv.Close()

	sum, err := New(testFetcher(), srv.URL, WithCityPause(0)).
		Run(context.Background(), []City{{Name: "Berlin", Country: "Germany"}})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Searches)
	assert.Equal(t, 1, sum.Empty)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Places)
}

func TestRun_ArchivesOnce(t *testing.T) {
	srv := httptest.NewServer(newBackend())
	defer srv.Close()

	arch := &memArchive{keys: map[string][]byte{}}
	r := New(testFetcher(), srv.URL, WithCityPause(0), WithConcurrency(1), WithArchive(arch))
	city := []City{{Name: "Berlin", Country: "Germany"}}

	sum, err := r.Run(context.Background(), city)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Archived)
	assert.Contains(t, string(arch.keys["Berlin, Germany/cafes"]), `"raw_data"`)

	sum, err = r.Run(context.Background(), city)
	require.NoError(t, err)
	assert.Zero(t, sum.Archived)
}

func TestRun_ArchiveErrorDoesNotFailSearch(t *testing.T) {
	srv := httptest.NewServer(newBackend())
	defer srv.Close()

	arch := &memArchive{keys: map[string][]byte{}, err: errors.New("bucket gone")}
	sum, err := New(testFetcher(), srv.URL, WithCityPause(0), WithArchive(arch)).
		Run(context.Background(), []City{{Name: "Berlin", Country: "Germany"}})
	require.NoError(t, err)
	assert.Zero(t, sum.Failed)
	assert.Zero(t, sum.Archived)
}

func TestRun_Canceled(t *testing.T) {
	srv := httptest.NewServer(newBackend())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := New(testFetcher(), srv.URL).Run(ctx, []City{{Name: "Berlin", Country: "Germany"}})
	require.Error(t, err)
	assert.Zero(t, sum.CitiesResolved)
}

func TestRun_PauseBetweenCities(t *testing.T) {
	srv := httptest.NewServer(newBackend())
	defer srv.Close()

	r := New(testFetcher(), srv.URL, WithCityPause(30*time.Millisecond), WithTypes(model.SearchTypeBakery))
	start := time.Now()
	_, err := r.Run(context.Background(), []City{{Name: "Berlin", Country: "Germany"}, {Name: "Paris", Country: "France"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestReadCities(t *testing.T) {
	input := "# seeds\nBerlin, Germany\n\nSingapore\nberlin,  germany\nWashington D.C., USA\n"
	cities, err := ReadCities(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []City{
		{Name: "Berlin", Country: "Germany"},
		{Name: "Singapore"},
		{Name: "Washington D.C.", Country: "USA"},
	}, cities)
	assert.Equal(t, "Singapore", cities[1].Query())
}

func TestLoadCities(t *testing.T) {
	builtin, err := LoadCities(context.Background(), "")
	require.NoError(t, err)
	assert.Greater(t, len(builtin), 100)
	assert.Equal(t, City{Name: "Paris", Country: "France"}, builtin[0])

	path := filepath.Join(t.TempDir(), "cities.csv")
	require.NoError(t, os.WriteFile(path, []byte("Lisbon, Portugal\n"), 0o600))
	cities, err := LoadCities(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []City{{Name: "Lisbon", Country: "Portugal"}}, cities)

	_, err = LoadCities(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	r, err := NewFromConfig(config.PopulateConfig{
		BaseURL:           "http://localhost:8080",
		RequestsPerSecond: 0.5,
		CityPauseSecs:     2,
		Concurrency:       2,
		TimeoutSecs:       30,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, r.concurrency)
	assert.Equal(t, 2*time.Second, r.cityPause)
	assert.Nil(t, r.archive)

	_, err = NewFromConfig(config.PopulateConfig{BaseURL: "not a url"}, nil)
	require.Error(t, err)
}
