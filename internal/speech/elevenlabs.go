package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assistant-console/internal/metrics"
)

const (
	DefaultModel = "eleven_flash_v2_5"

	maxAudioBytes = 10 << 20
	maxErrorBytes = 64 << 10
)

// APIError is a failed synthesis. Status is the upstream status, or 500 for transport failures.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("elevenlabs: %d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("elevenlabs: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are the settings every preview and greeting is rendered with.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.5,
	Style:           0.0,
	UseSpeakerBoost: true,
}

type SynthesisRequest struct {
	VoiceID string `json:"voiceId" validate:"required"`
	Text    string `json:"text" validate:"required"`
	Model   string `json:"model,omitempty"`
}

type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client is the ElevenLabs text-to-speech gateway.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	metrics *metrics.Metrics
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("speech: elevenlabs api key not configured")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.elevenlabs.io"
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, apiKey: opts.APIKey, model: model, http: hc, metrics: opts.Metrics}, nil
}

type synthesisBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize renders text with the given voice and returns audio/mpeg bytes.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (audio []byte, err error) {
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Voice ID manquant"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Le texte ne peut pas être vide"}
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveCall("elevenlabs", "text_to_speech", time.Since(start).Seconds(), err)
		}
	}()

	payload, err := json.Marshal(synthesisBody{Text: req.Text, ModelID: model, VoiceSettings: DefaultVoiceSettings})
	if err != nil {
		return nil, fmt.Errorf("speech: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("speech: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: "Erreur de connexion à ElevenLabs", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &APIError{Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, string(raw))}
	}

	audio, err = io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: "Erreur de connexion à ElevenLabs", Err: err}
	}
	return audio, nil
}

func statusMessage(status int, body string) string {
	switch status {
	case http.StatusUnauthorized:
		return "Clé API ElevenLabs invalide"
	case http.StatusUnprocessableEntity:
		return "Quota ElevenLabs dépassé ou voix indisponible"
	case http.StatusTooManyRequests:
		return "Limite de taux ElevenLabs atteinte"
	case http.StatusBadRequest:
		return "Requête invalide: " + body
	default:
		return "Erreur lors de la génération audio"
	}
}
