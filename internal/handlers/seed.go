package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/shanki-dipak/portfolio-twin/internal/i18n"
	"github.com/shanki-dipak/portfolio-twin/internal/models"
)

type seedRelationship struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

type seedRequest struct {
	Relationships []seedRelationship `json:"relationships"`
}

// handleSeed replaces the trigger table with the default set and optionally
// stores relationship categories for known visitors. The body may be empty.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.deps.AdminToken)) != 1 {
		s.respondMessage(w, r, http.StatusUnauthorized, i18n.MsgUnauthorized, nil)
		return
	}

	var body seedRequest
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, errEmptyBody) {
		s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgInvalidJSON, nil)
		return
	}

	relationships := make([]models.Relationship, 0, len(body.Relationships))
	for _, rel := range body.Relationships {
		category := models.RelationshipCategory(rel.Type)
		if rel.UserID == "" || !category.Valid() {
			s.respondMessage(w, r, http.StatusBadRequest, i18n.MsgSeedFailed, nil)
			return
		}
		relationships = append(relationships, models.Relationship{UserID: rel.UserID, Type: category})
	}

	log := s.deps.Logger.WithField("triggers", len(s.deps.Triggers))
	if err := s.deps.Seeder.ReplaceTriggers(r.Context(), s.deps.Triggers); err != nil {
		log.WithError(err).Error("Failed to seed triggers")
		s.respondMessage(w, r, http.StatusInternalServerError, i18n.MsgSeedFailed, nil)
		return
	}

	for _, rel := range relationships {
		if err := s.deps.Seeder.SaveRelationship(r.Context(), rel); err != nil {
			log.WithError(err).WithField("user_id", rel.UserID).Error("Failed to seed relationship")
			s.respondMessage(w, r, http.StatusInternalServerError, i18n.MsgSeedFailed, nil)
			return
		}
		if s.deps.RelCache != nil {
			s.deps.RelCache.Delete(rel.UserID)
		}
	}

	log.WithField("relationships", len(relationships)).Info("Database seeded")
	respondJSON(w, http.StatusOK, ackResponse{
		Success: true,
		Message: s.localize(r, i18n.MsgSeedDone, map[string]interface{}{"Name": s.deps.PersonaName}),
	})
}
