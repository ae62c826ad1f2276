package handlers

import (
	"net/http"

	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
)

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.localize(r, i18n.MsgLiveness, map[string]interface{}{"Name": s.deps.PersonaName})))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.deps.Backend,
	})
}
