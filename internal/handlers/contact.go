package handlers

import (
	"net/http"

	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// handleContact acknowledges every well-formed submission. Persisting and
// notifying are best-effort and never change the response.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if err := decodeJSON(r, &body); err != nil {
		s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgInvalidJSON, nil)
		return
	}

	result := s.deps.Contact.Submit(r.Context(), models.ContactInquiry{
		Name:    body.Name,
		Email:   body.Email,
		Service: body.Service,
		Message: body.Message,
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordContactSubmission(result.Persisted, result.Notified)
	}

	respondJSON(w, http.StatusOK, ackResponse{
		Success: true,
		Message: s.localize(r, i18n.MsgContactReceived, nil),
	})
}
