package assistants

import (
	"regexp"
	"time"
)

const (
	DefaultVoiceID      = "WQKwBV2Uzw1gSGr69N8I"
	DefaultStartMessage = "Bonjour, comment puis-je vous aider aujourd'hui ?"

	NoNumberLabel = "Aucun numéro"
)

type Assistant struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	Name         string      `json:"name"`
	VoiceID      string      `json:"voiceId"`
	StartMessage string      `json:"startMessage"`
	Prompt       string      `json:"prompt"`
	Tools        ToolsConfig `json:"toolsConfig"`

	TwilioAccountSID string `json:"twilioAccountSid,omitempty"`
	// TwilioAuthToken is sealed; never serialized.
	TwilioAuthToken string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListItem is an assistant row in the dashboard list, joined with its active number.
type ListItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	VoiceID      string    `json:"voiceId"`
	StartMessage string    `json:"startMessage"`
	PhoneNumber  string    `json:"phoneNumber"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	ListStatusActive   = "active"
	ListStatusInactive = "inactive"
)

// UpdateInput is an editor save. Nil fields are left unchanged.
type UpdateInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	VoiceID      *string `json:"voiceId" validate:"omitempty,max=64"`
	StartMessage *string `json:"startMessage" validate:"omitempty,max=2000"`
	Prompt       *string `json:"prompt" validate:"omitempty,max=20000"`
}

func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.VoiceID == nil && in.StartMessage == nil && in.Prompt == nil
}

var idPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidID reports whether id is a version 1-5 UUID in canonical form.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func defaultPrompt(name string) string {
	return "Vous êtes " + name + `, un assistant téléphonique professionnel et bienveillant.

Votre rôle:
- Accueillir chaleureusement les appelants
- Répondre aux questions de base
- Prendre des messages détaillés si nécessaire
- Transférer les appels urgents vers la bonne personne

Comportement:
- Toujours poli et professionnel
- Écouter attentivement avant de répondre
- Demander des clarifications si nécessaire
- Confirmer les informations importantes`
}
