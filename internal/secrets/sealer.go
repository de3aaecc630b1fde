package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope is the stored form of a sealed credential.
type Envelope struct {
	KeyID      string `json:"key_id"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

var ErrMalformed = errors.New("secrets: malformed envelope")

// Sealer encrypts provider credentials (Twilio sub-account tokens, Cal.com API keys)
// before they reach the store. Old key ids stay readable for rotation.
type Sealer struct {
	currentKeyID string
	keys         map[string][]byte
}

func NewSealer(currentKeyID string, keys map[string][]byte) (*Sealer, error) {
	if currentKeyID == "" {
		return nil, fmt.Errorf("current key id is empty")
	}
	if _, ok := keys[currentKeyID]; !ok {
		return nil, fmt.Errorf("current key id %q not found", currentKeyID)
	}
	cp := make(map[string][]byte, len(keys))
	for id, key := range keys {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("key %q must be %d bytes", id, chacha20poly1305.KeySize)
		}
		buf := make([]byte, len(key))
		copy(buf, key)
		cp[id] = buf
	}
	return &Sealer{currentKeyID: currentKeyID, keys: cp}, nil
}

// Seal encrypts plaintext under the current key. The key id is bound as associated data.
func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.keys[s.currentKeyID])
	if err != nil {
		return "", fmt.Errorf("new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(plaintext), []byte(s.currentKeyID))

	b, err := json.Marshal(Envelope{
		KeyID:      s.currentKeyID,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(b), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(sealed), &env); err != nil {
		return "", ErrMalformed
	}
	key, ok := s.keys[env.KeyID]
	if !ok {
		return "", fmt.Errorf("secrets: unknown key id %q", env.KeyID)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("new aead: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrMalformed
	}
	pt, err := aead.Open(nil, nonce, ct, []byte(env.KeyID))
	if err != nil {
		return "", fmt.Errorf("secrets: open: %w", err)
	}
	return string(pt), nil
}

// IsSealed reports whether v looks like a Seal output. Lets callers read rows written
// before sealing was introduced.
func IsSealed(v string) bool {
	var env Envelope
	if err := json.Unmarshal([]byte(v), &env); err != nil {
		return false
	}
	return env.KeyID != "" && env.Ciphertext != ""
}
