package assistants

import (
	"embed"
	"fmt"
	"strings"
)

type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Provider    string `json:"provider"`
}

var voices = []Voice{
	{
		ID:          "FpvROcY4IGWevepmBWO2",
		Name:        "Marie",
		Description: "Voix féminine parfaite pour tous vos besoins",
		Language:    "Français",
		Provider:    "ElevenLabs",
	},
	{
		ID:          "kENkNtk0xyzG09WW40xE",
		Name:        "Louis",
		Description: "Voix masculine chaleureuse, claire et conversationnelle",
		Language:    "Français",
		Provider:    "ElevenLabs",
	},
}

// Voices returns the selectable voices.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// VoiceByName resolves the editor's voice name to its ElevenLabs id.
func VoiceByName(name string) (Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Voice{}, false
}

type PromptTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

//go:embed templates/*.md
var templateFS embed.FS

var templateMeta = []PromptTemplate{
	{ID: "standard", Name: "Assistant Standard", Description: "Pour un standard téléphonique classique"},
	{ID: "appointment", Name: "Prise de rendez-vous", Description: "Spécialisé dans la planification de rendez-vous"},
	{ID: "customer-service", Name: "Service client", Description: "Pour le support et service après-vente"},
}

// PromptTemplates returns the starter prompts offered in the editor.
func PromptTemplates() ([]PromptTemplate, error) {
	out := make([]PromptTemplate, 0, len(templateMeta))
	for _, t := range templateMeta {
		body, err := templateFS.ReadFile("templates/" + t.ID + ".md")
		if err != nil {
			return nil, fmt.Errorf("prompt template %s: %w", t.ID, err)
		}
		t.Content = strings.TrimRight(string(body), "\n")
		out = append(out, t)
	}
	return out, nil
}
