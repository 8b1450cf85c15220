package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/feedback"
	"github.com/sells-group/gfscout/internal/search"
)

const internalErrorMessage = "An unexpected server error occurred."

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

// writeError maps service errors to status codes. Only validation, not
// found and timeout messages reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, search.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: publicMessage(err, search.ErrValidation)})
	case eris.Is(err, feedback.ErrEmpty):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: feedback.ErrEmpty.Error()})
	case eris.Is(err, search.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: publicMessage(err, search.ErrNotFound)})
	case eris.Is(err, search.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: search.ErrTimeout.Error()})
	default:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
	}
}

// publicMessage strips the sentinel suffix, leaving the context the
// service attached ("no cafes found in Berlin").
func publicMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
