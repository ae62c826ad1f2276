package persona

import "github.com/shanki-dipak/portfolio-twin/internal/models"

// DefaultTriggers is the canned reply set loaded by the seed endpoint
func DefaultTriggers() []models.TriggerResponse {
	return []models.TriggerResponse{
		{Trigger: "gaming", Response: "Online bhanda ta on-field Football khelna maza aaucha yar."},
		{Trigger: "momo", Response: "Momo pachi ko jhol is wild! 🥟✨"},
		{Trigger: "sleep", Response: "Sutne is my favorite hobby pachi after coding. 😴"},
	}
}
