package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"whisper", "deepgram"},
	"tts": {"elevenlabs", "coqui"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Auth
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("auth.jwt_secret is empty; authenticated API routes will reject all requests")
	}
	if cfg.Auth.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl %v must not be negative", cfg.Auth.TokenTTL))
	}

	// Providers
	validateProviderEntry("llm", cfg.Providers.LLM)
	validateProviderEntry("stt", cfg.Providers.STT)
	validateProviderEntry("tts", cfg.Providers.TTS)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required; the tutor cannot generate replies without a language model"))
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; turns must carry a pre-transcribed text field")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is not configured; turns will complete without tutor audio")
	}

	// Database
	if cfg.Database.PostgresDSN == "" {
		slog.Warn("database.postgres_dsn is empty; conversations and progress will be held in memory only")
	}

	// Content
	if cfg.Content.ScenariosDir == "" {
		errs = append(errs, errors.New("content.scenarios_dir is required"))
	}
	if len(cfg.Content.Languages) == 0 {
		slog.Warn("content.languages is empty; all scenario languages will be loaded")
	}
	seen := make(map[string]int, len(cfg.Content.Languages))
	for i, lang := range cfg.Content.Languages {
		if lang == "" {
			errs = append(errs, fmt.Errorf("content.languages[%d] must not be empty", i))
			continue
		}
		if prev, ok := seen[lang]; ok {
			errs = append(errs, fmt.Errorf("content.languages[%d] %q is a duplicate of content.languages[%d]", i, lang, prev))
		}
		seen[lang] = i
	}

	return errors.Join(errs...)
}

// validateProviderEntry warns about unrecognised provider names for the entry
// and its fallback chain.
func validateProviderEntry(kind string, entry ProviderEntry) {
	validateProviderName(kind, entry.Name)
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		validateProviderName(kind, fb.Name)
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
