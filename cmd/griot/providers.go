package main

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/griotlabs/griot/internal/config"
	"github.com/griotlabs/griot/internal/resilience"
	"github.com/griotlabs/griot/pkg/provider/llm"
	"github.com/griotlabs/griot/pkg/provider/llm/anyllm"
	oaillm "github.com/griotlabs/griot/pkg/provider/llm/openai"
	"github.com/griotlabs/griot/pkg/provider/stt"
	"github.com/griotlabs/griot/pkg/provider/stt/deepgram"
	"github.com/griotlabs/griot/pkg/provider/stt/whisper"
	"github.com/griotlabs/griot/pkg/provider/tts"
	"github.com/griotlabs/griot/pkg/provider/tts/coqui"
	"github.com/griotlabs/griot/pkg/provider/tts/elevenlabs"
)

// providerSet bundles the three pipeline stages after fallback wiring.
type providerSet struct {
	LLM llm.Provider
	STT stt.Provider
	TTS tts.Provider
}

// buildProviders instantiates the configured providers and wraps each stage
// in a fallback group when a secondary backend is configured.
func buildProviders(cfg *config.Config) (*providerSet, error) {
	llmProv, err := buildLLMChain(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	var sttProv stt.Provider
	if cfg.Providers.STT.Name != "" {
		sttProv, err = buildSTTChain(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("stt: %w", err)
		}
	}

	var ttsProv tts.Provider
	if cfg.Providers.TTS.Name != "" {
		ttsProv, err = buildTTSChain(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("tts: %w", err)
		}
	}

	return &providerSet{LLM: llmProv, STT: sttProv, TTS: ttsProv}, nil
}

func buildLLMChain(entry config.ProviderEntry) (llm.Provider, error) {
	primary, err := buildLLM(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	secondary, err := buildLLM(*entry.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	group := resilience.NewLLMFallback(primary, entry.Name, resilience.FallbackConfig{})
	group.AddFallback(entry.Fallback.Name, secondary)
	return group, nil
}

func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)

	case "ollama":
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)

	case "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile":
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", entry.Name)
	}
}

func buildSTTChain(entry config.ProviderEntry) (stt.Provider, error) {
	primary, err := buildSTT(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	secondary, err := buildSTT(*entry.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	group := resilience.NewSTTFallback(primary, entry.Name, resilience.FallbackConfig{})
	group.AddFallback(entry.Fallback.Name, secondary)
	return group, nil
}

func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "deepgram":
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)

	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", entry.Name)
	}
}

func buildTTSChain(entry config.ProviderEntry) (tts.Provider, error) {
	primary, err := buildTTS(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	secondary, err := buildTTS(*entry.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	group := resilience.NewTTSFallback(primary, entry.Name, resilience.FallbackConfig{})
	group.AddFallback(entry.Fallback.Name, secondary)
	return group, nil
}

func buildTTS(entry config.ProviderEntry) (tts.Provider, error) {
	switch entry.Name {
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)

	case "coqui":
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", entry.Name)
	}
}

// optString extracts a string from a provider Options map. Returns "" when
// the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
