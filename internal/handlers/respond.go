package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var errEmptyBody = errors.New("empty request body")

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondMessage writes {error: <localized message>}
func (s *Server) respondMessage(w http.ResponseWriter, r *http.Request, status int, messageID string, data map[string]interface{}) {
	respondJSON(w, status, errorResponse{Error: s.localize(r, messageID, data)})
}

func (s *Server) localize(r *http.Request, messageID string, data map[string]interface{}) string {
	if s.deps.Localizer == nil {
		return messageID
	}
	return s.deps.Localizer.Localize(r.Header.Get("Accept-Language"), messageID, data)
}
