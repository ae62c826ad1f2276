package persona

import (
	"fmt"
	"os"

	"github.com/shanki-dipak/portfolio-twin/internal/models"
	"gopkg.in/yaml.v3"
)

// SampleExchange is a few-shot example of the persona's voice
type SampleExchange struct {
	Context string `yaml:"context"`
	User    string `yaml:"user"`
	Reply   string `yaml:"reply"`
}

// Profile holds the biography the digital twin speaks from. It is loaded
// once at start and never mutated afterwards.
type Profile struct {
	Name            string                                 `yaml:"name"`
	Birthday        string                                 `yaml:"birthday"`
	Origin          string                                 `yaml:"origin"`
	Personality     string                                 `yaml:"personality"`
	Education       string                                 `yaml:"education"`
	Routine         string                                 `yaml:"routine"`
	CurrentGoal     string                                 `yaml:"current_goal"`
	Hobbies         []string                               `yaml:"hobbies"`
	TechStack       []string                               `yaml:"tech_stack"`
	Specialties     []string                               `yaml:"specialties"`
	Likes           []string                               `yaml:"likes"`
	Dislikes        []string                               `yaml:"dislikes"`
	Accomplishments string                                 `yaml:"accomplishments"`
	ContactEmail    string                                 `yaml:"contact_email"`
	Tones           map[models.RelationshipCategory]string `yaml:"tones"`
	SampleChats     []SampleExchange                       `yaml:"sample_chats"`
}

// DefaultProfile returns the built-in persona
func DefaultProfile() Profile {
	return Profile{
		Name:        "Dipak",
		Birthday:    "February 4th",
		Origin:      "Dadeldhura, Nepal",
		Personality: "Chill, witty, and 'alpha'. Lives a simple life, loves reading jokes, and is very direct. Respectful but roasts toxicity hard.",
		Education:   "Computer Science student. Started his journey with HTML/CSS in college and never looked back.",
		Routine:     "Wakes up early at 6 AM for college. Back home by 10-11 AM to grind on code and chill.",
		CurrentGoal: "Searching for a Software Dev or AI/ML job/internship. Ready to build the future.",
		Hobbies: []string{
			"Cricket (Big fan of Virat Kohli, RCB, and Nepal Team)",
			"Futsal (Just here to score goals)",
			"Reading Jokes",
			"Exploring Data Science",
		},
		TechStack:   []string{"MERN (MongoDB, Express, React, Node)", "SERN", "Postgres", "FastAPI", "Python"},
		Specialties: []string{"AI & ML Model making", "Data handling", "Full-stack development"},
		Likes:       []string{"Momo with wild Jhol", "FastAPI performance", "Chilling after college", "Nepal Cricket victories"},
		Dislikes:    []string{"CSS / Styling (Hates it with a passion)", "Slow internet", "Bitter Gourd (Tite Karela)"},
		Accomplishments: "Self-taught AI enthusiast and Web Dev from Dadeldhura. Built this entire digital clone system.",
		ContactEmail:    "shanki.dipak@gmail.com",
		Tones: map[models.RelationshipCategory]string{
			models.RelationshipStranger: "Polite, modest, but subtly cool. Use 'Hajur' naturally. Mention Dadeldhura if asked about home.",
			models.RelationshipFriend:   "Wild, funny, and high energy. Talk about RCB, Kohli, or Nepal Cricket. Roast their CSS skills if they have any.",
			models.RelationshipWork:     "Professional but energetic. Focus on FastAPI, MERN, and AI solutions. Mention availability for internships/jobs.",
			models.RelationshipFamily:   "Warm and respectful. Use 'Hajur' with elders, share college and routine updates, keep it light and caring.",
		},
		SampleChats: []SampleExchange{
			{Context: "Friend", User: "RCB this year?", Reply: "Ee saala Cup Namdu! Kohli is the GOAT. Nepal ko match heris?"},
			{Context: "Stranger", User: "Where are you from?", Reply: "Hajur, I'm from Dadeldhura. It's a beautiful place. You ever been to the far-west?"},
			{Context: "Work", User: "Can you build an AI model?", Reply: "Sahi ho! AI/ML and Data handling is my jam. MERN pachi FastAPI is wild. Let's discuss requirements."},
		},
	}
}

// LoadProfile reads a persona from a YAML file. Fields missing from the
// file keep their built-in values.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read persona file: %w", err)
	}

	var loaded Profile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Profile{}, fmt.Errorf("failed to parse persona file: %w", err)
	}
	profile.merge(loaded)

	if profile.Name == "" {
		return Profile{}, fmt.Errorf("persona name is required")
	}
	for category := range profile.Tones {
		if !category.Valid() {
			return Profile{}, fmt.Errorf("unknown relationship category in tones: %q", category)
		}
	}
	return profile, nil
}

func (p *Profile) merge(other Profile) {
	setString := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	setList := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}

	setString(&p.Name, other.Name)
	setString(&p.Birthday, other.Birthday)
	setString(&p.Origin, other.Origin)
	setString(&p.Personality, other.Personality)
	setString(&p.Education, other.Education)
	setString(&p.Routine, other.Routine)
	setString(&p.CurrentGoal, other.CurrentGoal)
	setList(&p.Hobbies, other.Hobbies)
	setList(&p.TechStack, other.TechStack)
	setList(&p.Specialties, other.Specialties)
	setList(&p.Likes, other.Likes)
	setList(&p.Dislikes, other.Dislikes)
	setString(&p.Accomplishments, other.Accomplishments)
	setString(&p.ContactEmail, other.ContactEmail)

	if len(other.Tones) > 0 {
		tones := make(map[models.RelationshipCategory]string, len(p.Tones)+len(other.Tones))
		for k, v := range p.Tones {
			tones[k] = v
		}
		for k, v := range other.Tones {
			tones[k] = v
		}
		p.Tones = tones
	}
	if len(other.SampleChats) > 0 {
		p.SampleChats = other.SampleChats
	}
}

// Tone returns the tone for a category, falling back to the stranger tone
func (p Profile) Tone(category models.RelationshipCategory) string {
	if tone, ok := p.Tones[category]; ok && tone != "" {
		return tone
	}
	return p.Tones[models.RelationshipStranger]
}

// Clone returns a deep copy
func (p Profile) Clone() Profile {
	clone := p
	clone.Hobbies = append([]string(nil), p.Hobbies...)
	clone.TechStack = append([]string(nil), p.TechStack...)
	clone.Specialties = append([]string(nil), p.Specialties...)
	clone.Likes = append([]string(nil), p.Likes...)
	clone.Dislikes = append([]string(nil), p.Dislikes...)
	clone.SampleChats = append([]SampleExchange(nil), p.SampleChats...)
	clone.Tones = make(map[models.RelationshipCategory]string, len(p.Tones))
	for k, v := range p.Tones {
		clone.Tones[k] = v
	}
	return clone
}
