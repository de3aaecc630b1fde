package speech

import (
	"context"
	"encoding/base64"
)

const ContentTypeMPEG = "audio/mpeg"

// Synthesizer renders speech. *Client implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

type Preview struct {
	Audio       string `json:"audio"`
	ContentType string `json:"contentType"`
	Cached      bool   `json:"-"`
}

// Previewer serves voice previews for the editor, reusing earlier renders of the same (voice, text).
type Previewer struct {
	synth Synthesizer
	cache *Cache
}

func NewPreviewer(synth Synthesizer, cache *Cache) *Previewer {
	return &Previewer{synth: synth, cache: cache}
}

func (p *Previewer) Preview(ctx context.Context, req SynthesisRequest) (Preview, error) {
	key := CacheKey(req.VoiceID, req.Text)
	if p.cache != nil {
		if audio, ok := p.cache.Get(ctx, key); ok {
			return Preview{Audio: base64.StdEncoding.EncodeToString(audio), ContentType: ContentTypeMPEG, Cached: true}, nil
		}
	}

	audio, err := p.synth.Synthesize(ctx, req)
	if err != nil {
		return Preview{}, err
	}
	if p.cache != nil {
		p.cache.Set(ctx, key, audio)
	}
	return Preview{Audio: base64.StdEncoding.EncodeToString(audio), ContentType: ContentTypeMPEG}, nil
}
