package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/textsearch/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "gluten-free cafes in Berlin", r.URL.Query().Get("query"))
		assert.Equal(t, "cafe", r.URL.Query().Get("type"))
		assert.Empty(t, r.URL.Query().Get("pagetoken"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"next_page_token": "tok-2",
			"results": [{
				"place_id": "ChIJ-a",
				"name": "Glutenfrei Cafe",
				"formatted_address": "Hauptstr. 1, Berlin",
				"business_status": "OPERATIONAL",
				"rating": 4.7,
				"user_ratings_total": 212,
				"types": ["cafe", "food"],
				"geometry": {"location": {"lat": 52.52, "lng": 13.40}}
			}]
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{
		Query: "gluten-free cafes in Berlin",
		Type:  "cafe",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "tok-2", resp.NextPageToken)
	require.Len(t, resp.Results, 1)
	p := resp.Results[0]
	assert.Equal(t, "ChIJ-a", p.PlaceID)
	assert.Equal(t, "Hauptstr. 1, Berlin", p.Address())
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.7, *p.Rating, 0.001)
	assert.Equal(t, 212, p.UserRatingsTotal)
	require.NotNil(t, p.Geometry.Location)
	assert.InDelta(t, 52.52, p.Geometry.Location.Lat, 0.0001)
}

func TestTextSearch_PageTokenOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tok-2", q.Get("pagetoken"))
		assert.Empty(t, q.Get("query"))
		assert.Empty(t, q.Get("type"))
		_ = json.NewEncoder(w).Encode(SearchResponse{Status: StatusOK})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), TextSearchRequest{
		Query:     "ignored",
		Type:      "cafe",
		PageToken: "tok-2",
	})
	require.NoError(t, err)
}

func TestTextSearch_ZeroResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(SearchResponse{Status: StatusZeroResults})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{Query: "nothing"})

	require.NoError(t, err)
	assert.Equal(t, StatusZeroResults, resp.Status)
	assert.Empty(t, resp.Results)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{Query: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
}

func TestTextSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "OK", "results": [`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{Query: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(ctx, TextSearchRequest{Query: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestTextSearch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.TextSearch(context.Background(), TextSearchRequest{Query: "slow"})
	assert.Error(t, err)
}

func TestNearbySearch_Params(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "52.52,13.405", q.Get("location"))
		assert.Equal(t, "5000", q.Get("radius"))
		assert.Empty(t, q.Get("rankby"))
		assert.Equal(t, "bakery", q.Get("type"))
		assert.Equal(t, "gluten free", q.Get("keyword"))

		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"p1","name":"Bäckerei","vicinity":"Torstr. 5","types":["bakery"]}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.NearbySearch(context.Background(), NearbySearchRequest{
		Lat:          52.52,
		Lng:          13.405,
		RadiusMeters: 5000,
		Type:         "bakery",
		Keyword:      "gluten free",
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Torstr. 5", resp.Results[0].Address())
}

func TestNearbySearch_RankByDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "distance", r.URL.Query().Get("rankby"))
		assert.Empty(t, r.URL.Query().Get("radius"))
		_ = json.NewEncoder(w).Encode(SearchResponse{Status: StatusOK})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 2})
	require.NoError(t, err)
}

func TestFindPlace_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/findplacefromtext/json", r.URL.Path)
		assert.Equal(t, "Paris, France", r.URL.Query().Get("input"))
		assert.Equal(t, "textquery", r.URL.Query().Get("inputtype"))
		assert.Contains(t, r.URL.Query().Get("fields"), "geometry")

		_, _ = w.Write([]byte(`{"status":"OK","candidates":[{"name":"Paris","formatted_address":"Paris, France","geometry":{"location":{"lat":48.8566,"lng":2.3522}}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.FindPlace(context.Background(), "Paris, France")

	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	require.NotNil(t, resp.Candidates[0].Geometry.Location)
	assert.InDelta(t, 2.3522, resp.Candidates[0].Geometry.Location.Lng, 0.0001)
}
