package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Provider status values returned in the "status" field.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error)
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error)
	FindPlace(ctx context.Context, input string) (*FindPlaceResponse, error)
}

// TextSearchRequest is a Text Search query. When PageToken is set the other
// fields are ignored, matching the provider's continuation semantics.
type TextSearchRequest struct {
	Query     string
	Type      string
	PageToken string
}

// NearbySearchRequest is a Nearby Search query around a point. RadiusMeters
// of zero ranks results by distance instead.
type NearbySearchRequest struct {
	Lat          float64
	Lng          float64
	RadiusMeters int
	Type         string
	Keyword      string
	PageToken    string
}

// SearchResponse is the shared shape of Text and Nearby Search responses.
type SearchResponse struct {
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	NextPageToken string        `json:"next_page_token,omitempty"`
	Results       []PlaceResult `json:"results"`
}

// PlaceResult is one place in a search response.
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Vicinity         string   `json:"vicinity,omitempty"`
	BusinessStatus   string   `json:"business_status,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	Types            []string `json:"types"`
	Geometry         Geometry `json:"geometry"`
}

// Address returns the formatted address, falling back to the vicinity that
// Nearby Search returns instead.
func (p PlaceResult) Address() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Vicinity
}

// Geometry holds the place location.
type Geometry struct {
	Location *LatLng `json:"location,omitempty"`
}

// LatLng is a coordinate pair in the provider's field naming.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FindPlaceResponse is the response from Find Place From Text.
type FindPlaceResponse struct {
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Candidates   []PlaceCandidate `json:"candidates"`
}

// PlaceCandidate is one Find Place result.
type PlaceCandidate struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         Geometry `json:"geometry"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error) {
	params := url.Values{}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("query", req.Query)
		if req.Type != "" {
			params.Set("type", req.Type)
		}
	}

	var result SearchResponse
	if err := c.get(ctx, "/textsearch/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "google: text search")
	}
	return &result, nil
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error) {
	params := url.Values{}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", fmt.Sprintf("%s,%s",
			strconv.FormatFloat(req.Lat, 'f', -1, 64),
			strconv.FormatFloat(req.Lng, 'f', -1, 64)))
		if req.RadiusMeters > 0 {
			params.Set("radius", strconv.Itoa(req.RadiusMeters))
		} else {
			params.Set("rankby", "distance")
		}
		if req.Type != "" {
			params.Set("type", req.Type)
		}
		if req.Keyword != "" {
			params.Set("keyword", req.Keyword)
		}
	}

	var result SearchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "google: nearby search")
	}
	return &result, nil
}

func (c *httpClient) FindPlace(ctx context.Context, input string) (*FindPlaceResponse, error) {
	params := url.Values{}
	params.Set("input", input)
	params.Set("inputtype", "textquery")
	params.Set("fields", "name,formatted_address,geometry")

	var result FindPlaceResponse
	if err := c.get(ctx, "/findplacefromtext/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "google: find place")
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
