package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// RelationshipCategory selects the tone the persona uses with a visitor
type RelationshipCategory string

const (
	RelationshipStranger RelationshipCategory = "stranger"
	RelationshipFriend   RelationshipCategory = "friend"
	RelationshipWork     RelationshipCategory = "work"
	RelationshipFamily   RelationshipCategory = "family"
)

// RelationshipCategories lists every valid category
var RelationshipCategories = []RelationshipCategory{
	RelationshipStranger,
	RelationshipFriend,
	RelationshipWork,
	RelationshipFamily,
}

// ParseRelationship resolves free-form input to a category. Anything
// unrecognized is a stranger.
func ParseRelationship(value string) RelationshipCategory {
	category := RelationshipCategory(strings.ToLower(strings.TrimSpace(value)))
	if category.Valid() {
		return category
	}
	return RelationshipStranger
}

func (c RelationshipCategory) Valid() bool {
	for _, known := range RelationshipCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Role is the speaker of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn represents one message of the recent history
type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// HistoryMessage is the wire shape of a turn sent by the chat UI
type HistoryMessage struct {
	Text  string `json:"text"`
	IsBot bool   `json:"isBot"`
}

// Turn converts the wire shape into a ConversationTurn
func (m HistoryMessage) Turn() ConversationTurn {
	role := RoleUser
	if m.IsBot {
		role = RoleAssistant
	}
	return ConversationTurn{Role: role, Text: m.Text}
}

// TrailingWindow returns the last n turns, oldest first
func TrailingWindow(turns []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	window := make([]ConversationTurn, len(turns))
	copy(window, turns)
	return window
}

// TriggerResponse is a canned reply returned when its keyword appears
type TriggerResponse struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
}

// Normalize lowercases and trims the trigger keyword
func (t TriggerResponse) Normalize() TriggerResponse {
	t.Trigger = strings.ToLower(strings.TrimSpace(t.Trigger))
	return t
}

// TriggerTokens splits a message into lowercase whole-word tokens, in
// order of first appearance and without duplicates.
func TriggerTokens(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		tokens = append(tokens, field)
	}
	return tokens
}

// FirstTrigger picks the trigger of the earliest matching token
func FirstTrigger(tokens []string, found map[string]TriggerResponse) *TriggerResponse {
	for _, token := range tokens {
		if trigger, ok := found[token]; ok {
			return &trigger
		}
	}
	return nil
}

// ChatLogEntry records one answered chat message
type ChatLogEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Message         string    `json:"message"`
	Reply           string    `json:"reply"`
	ToneUsed        string    `json:"toneUsed"`
	IsMemeTriggered bool      `json:"isMemeTriggered"`
	Timestamp       time.Time `json:"timestamp"`
}

// ContactInquiry is a contact-form submission
type ContactInquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate applies the persistence schema rules
func (c ContactInquiry) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	return nil
}

// Relationship is a stored relationship category for a visitor
type Relationship struct {
	UserID          string               `json:"userId"`
	Type            RelationshipCategory `json:"type"`
	LastInteraction time.Time            `json:"lastInteraction"`
}
