package persona

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/shanki-dipak/portfolio-twin/internal/models"
)

const promptTemplateText = `You are the DIGITAL TWIN of {{.Profile.Name}}, born on {{.Profile.Birthday}} and originally from {{.Profile.Origin}}.
PERSONALITY: {{.Profile.Personality}}
EDUCATION: {{.Profile.Education}}
TECH STACK: {{join .Profile.TechStack ", "}}
{{- if .Profile.Specialties}}
SPECIALTIES: {{join .Profile.Specialties ", "}}
{{- end}}
{{- if .Profile.Likes}}
LIKES: {{join .Profile.Likes ", "}}
{{- end}}
{{- if .Profile.Dislikes}}
HATES: {{join .Profile.Dislikes ", "}}
{{- end}}
INTERESTS: {{join .Profile.Hobbies ", "}}
CURRENT STATUS: {{.Profile.CurrentGoal}}
ROUTINE: {{.Profile.Routine}}
{{- if .Profile.Accomplishments}}
ACCOMPLISHMENTS: {{.Profile.Accomplishments}}
{{- end}}
TONE: {{.Tone}}

{{if .UserName -}}
The user's name is {{.UserName}}. Call them by their name occasionally.
{{- else -}}
You don't know the user's name yet. If the conversation feels natural, try to ask for it gracefully.
When the user tells you their name, append {{.Marker}} at the very end of your reply, with their name in place of <name>.
{{- end}}

GUIDELINES:
1. IDENTITY: You are {{.Profile.Name}}. Speak in FIRST PERSON. Never say "I am an AI". Stay in character.
2. LANGUAGE: Respond in the SAME LANGUAGE as the user. If they speak English, use professional but casual English. If they use Nepali/Neplish, you can switch to that.
3. SLANG: Do NOT force slang. Use it very sparingly and only if it flows naturally. If in doubt, speak normal English.
4. TOXICITY/CURSING: If the user is toxic, roast them back wittily. Otherwise, be chill and helpful.
5. OUT-OF-SCOPE: If asked something unknown, direct them to {{.Profile.ContactEmail}}.
6. PROACTIVE: Keep the chat alive. Ask follow-up questions about tech, sports, or life.
7. STYLE: Concise, direct, and developer-focused. Avoid long, robotic paragraphs.

FEW-SHOT EXAMPLES:
{{- range .Profile.SampleChats}}
[{{.Context}}] User: {{.User}} -> {{$.Profile.Name}}: {{.Reply}}
{{- end}}

{{range .Lines}}{{.}}
{{end}}Assistant: `

var promptTemplate = template.Must(template.New("persona").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(promptTemplateText))

// NameMarker is the placeholder form of the name-capture marker
const NameMarker = "[[NAME:<name>]]"

type promptData struct {
	Profile  Profile
	Tone     string
	UserName string
	Marker   string
	Lines    []string
}

// Builder renders persona prompts. It holds no mutable state and is safe
// for concurrent use.
type Builder struct {
	profile Profile
}

// NewBuilder creates a prompt builder for a profile
func NewBuilder(profile Profile) (*Builder, error) {
	if profile.Name == "" {
		return nil, fmt.Errorf("persona name is required")
	}
	if profile.Tone(models.RelationshipStranger) == "" {
		return nil, fmt.Errorf("persona stranger tone is required")
	}
	return &Builder{profile: profile.Clone()}, nil
}

// Profile returns a copy of the persona
func (b *Builder) Profile() Profile {
	return b.profile.Clone()
}

// Build renders the system prompt followed by the history window and the
// trailing assistant cue.
func (b *Builder) Build(category models.RelationshipCategory, userName string, history []models.ConversationTurn) (string, error) {
	return b.render(category, userName, historyLines(history))
}

// Compose renders the full model input, with the latest user message placed
// right before the assistant cue.
func (b *Builder) Compose(category models.RelationshipCategory, userName string, history []models.ConversationTurn, message string) (string, error) {
	lines := historyLines(history)
	lines = append(lines, "User: "+message)
	return b.render(category, userName, lines)
}

func (b *Builder) render(category models.RelationshipCategory, userName string, lines []string) (string, error) {
	if !category.Valid() {
		category = models.RelationshipStranger
	}

	data := promptData{
		Profile:  b.profile,
		Tone:     b.profile.Tone(category),
		UserName: KnownName(userName),
		Marker:   NameMarker,
		Lines:    lines,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render persona prompt: %w", err)
	}
	return buf.String(), nil
}

// KnownName returns the trimmed name, or "" for placeholder names
func KnownName(userName string) string {
	name := strings.TrimSpace(userName)
	switch strings.ToLower(name) {
	case "", "anonymous", "stranger":
		return ""
	}
	return name
}

func historyLines(history []models.ConversationTurn) []string {
	lines := make([]string, 0, len(history)+1)
	for _, turn := range history {
		speaker := "User"
		if turn.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+turn.Text)
	}
	return lines
}
