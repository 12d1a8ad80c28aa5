package tracker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ValidateTrackerPathParamsMiddleware parses the named path parameters as
// UUIDs and stores them on the request context before the handler runs.
func (h *TrackerHandler) ValidateTrackerPathParamsMiddleware(next http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, param := range params {
			paramValue := r.PathValue(param)
			if paramValue == "" {
				h.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", param))
				return
			}

			parsedUUID, err := uuid.Parse(paramValue)
			if err != nil {
				switch param {
				case "portfolioID":
					h.respondError(w, http.StatusNotFound, "Portfolio not found")
				case "holdingID":
					h.respondError(w, http.StatusNotFound, "Holding not found")
				default:
					h.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", param))
				}
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), param, parsedUUID))
		}
		next.ServeHTTP(w, r)
	})
}
