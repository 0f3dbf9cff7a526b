package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
)

// NewHandler mounts the service as a plain json-over-http endpoint:
// POST {email, secret, url} and get the run id plus terminal result
// back once the chain finishes.
func NewHandler(s Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := s.Run(r.Context(), req)
		switch {
		case errors.Is(err, ErrMissingFields):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrInvalidSecret):
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(res)
	})
}
