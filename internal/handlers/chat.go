package handlers

import (
	"errors"
	"net/http"

	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"github.com/shanki-dipak/portfolio-twin/internal/services/chat"
)

type chatRequest struct {
	Message          string                  `json:"message"`
	History          []models.HistoryMessage `json:"history"`
	UserID           string                  `json:"userId"`
	RelationshipType string                  `json:"relationshipType"`
	UserName         string                  `json:"userName"`
}

func (req chatRequest) toRequest() chat.Request {
	history := make([]models.ConversationTurn, 0, len(req.History))
	for _, msg := range req.History {
		history = append(history, msg.Turn())
	}
	return chat.Request{
		Message:          req.Message,
		History:          history,
		UserID:           req.UserID,
		RelationshipType: req.RelationshipType,
		UserName:         req.UserName,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeJSON(r, &body); err != nil {
		if errors.Is(err, errEmptyBody) {
			s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgMessageRequired, nil)
			return
		}
		s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgInvalidJSON, nil)
		return
	}

	resp, err := s.deps.Chat.Reply(r.Context(), body.toRequest())
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgMessageRequired, nil)
			return
		}
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   s.localize(r, i18n.MsgGenerationFailed, nil),
			Details: chat.GenerationDetails(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
