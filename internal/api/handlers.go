package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/internal/news"
)

const maxFeedbackBody = 64 << 10

type searchResponse struct {
	RawData []model.Establishment `json:"raw_data"`
}

type newsResponse struct {
	Articles []news.Article `json:"articles"`
}

type feedbackRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	places, err := s.deps.Search.Search(ctx, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if places == nil {
		places = []model.Establishment{}
	}
	writeJSON(w, http.StatusOK, searchResponse{RawData: places})
}

// parseSearchQuery reads type, city, country, lat and lon. lat and lon must
// be given together.
func parseSearchQuery(r *http.Request) (model.SearchQuery, error) {
	params := r.URL.Query()

	typ, err := model.ParseSearchType(params.Get("type"))
	if err != nil {
		return model.SearchQuery{}, err
	}
	q := model.SearchQuery{
		Type:    typ,
		City:    strings.TrimSpace(params.Get("city")),
		Country: strings.TrimSpace(params.Get("country")),
	}

	rawLat, rawLon := strings.TrimSpace(params.Get("lat")), strings.TrimSpace(params.Get("lon"))
	switch {
	case rawLat == "" && rawLon == "":
		if q.City == "" {
			return model.SearchQuery{}, eris.New("a city or both lat and lon are required")
		}
	case rawLat == "" || rawLon == "":
		return model.SearchQuery{}, eris.New("lat and lon must be provided together")
	default:
		// ParseFloat accepts "NaN" and "Inf".
		lat, err := strconv.ParseFloat(rawLat, 64)
		if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
			return model.SearchQuery{}, eris.Errorf("invalid lat %q", rawLat)
		}
		lon, err := strconv.ParseFloat(rawLon, 64)
		if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
			return model.SearchQuery{}, eris.Errorf("invalid lon %q", rawLon)
		}
		q.Coordinates = &model.Coordinates{Lat: lat, Lng: lon}
	}

	if err := q.Validate(); err != nil {
		return model.SearchQuery{}, err
	}
	return q, nil
}

func (s *Server) handleCityCoordinates(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "city is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	coords, err := s.deps.Resolver.Resolve(ctx, city)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	fb, err := s.deps.Feedback.Submit(r.Context(), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": fb.ID})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newsResponse{Articles: s.deps.News.Latest(r.Context())})
}
