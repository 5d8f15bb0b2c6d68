package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper"},
	"tts": {"piper"},
	"llm": {"openai", "anthropic", "gemini", "ollama", "llamacpp"},
}

// weekdays maps lowercase English weekday names to their [time.Weekday].
var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts an English weekday name (any case) to a
// [time.Weekday].
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("config: unknown weekday %q", name)
	}
	return wd, nil
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

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameMillis < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_ms %d must not be negative", cfg.Audio.FrameMillis))
	}

	// Wake gate
	if cfg.Wake.Threshold < 0 || cfg.Wake.Threshold > 1 {
		errs = append(errs, fmt.Errorf("wake.threshold %.2f is out of range [0, 1]", cfg.Wake.Threshold))
	}
	if cfg.Wake.CooldownFrames < 0 {
		errs = append(errs, fmt.Errorf("wake.cooldown_frames %d must not be negative", cfg.Wake.CooldownFrames))
	}

	// Capture
	if cfg.Capture.PreRollMillis < 0 {
		errs = append(errs, fmt.Errorf("capture.preroll_ms %d must not be negative", cfg.Capture.PreRollMillis))
	}
	if cfg.Capture.StartFrames < 0 {
		errs = append(errs, fmt.Errorf("capture.start_frames %d must not be negative", cfg.Capture.StartFrames))
	}
	if cfg.Capture.StopFrames < 0 {
		errs = append(errs, fmt.Errorf("capture.stop_frames %d must not be negative", cfg.Capture.StopFrames))
	}
	if cfg.Capture.MaxDurationMillis < 0 {
		errs = append(errs, fmt.Errorf("capture.max_duration_ms %d must not be negative", cfg.Capture.MaxDurationMillis))
	}

	// Dialogue
	if cfg.Dialogue.AcceptThreshold < 0 || cfg.Dialogue.AcceptThreshold > 1 {
		errs = append(errs, fmt.Errorf("dialogue.accept_threshold %.2f is out of range [0, 1]", cfg.Dialogue.AcceptThreshold))
	}
	if cfg.Dialogue.MaxFollowups < 0 {
		errs = append(errs, fmt.Errorf("dialogue.max_followups %d must not be negative", cfg.Dialogue.MaxFollowups))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", fb.Name)
	}
	for _, fb := range cfg.Providers.TTSFallbacks {
		validateProviderName("tts", fb.Name)
	}
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}

	if cfg.Providers.STT.Name == "" && len(cfg.Providers.STTFallbacks) > 0 {
		errs = append(errs, errors.New("providers.stt_fallbacks requires providers.stt to be configured"))
	}
	if cfg.Providers.TTS.Name == "" && len(cfg.Providers.TTSFallbacks) > 0 {
		errs = append(errs, errors.New("providers.tts_fallbacks requires providers.tts to be configured"))
	}
	if cfg.Providers.LLM.Name == "" && len(cfg.Providers.LLMFallbacks) > 0 {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm to be configured"))
	}

	// Registry availability
	if cfg.Registry.Path == "" && cfg.Registry.PostgresDSN == "" {
		slog.Warn("registry has neither path nor postgres_dsn; device commands will not resolve any entities")
	}
	if cfg.Registry.Path != "" && cfg.Registry.PostgresDSN != "" {
		slog.Warn("registry.path and registry.postgres_dsn are both set; the YAML file wins",
			"path", cfg.Registry.Path)
	}

	// Parking rules
	for i, rule := range cfg.Parking.Rules {
		prefix := fmt.Sprintf("parking.rules[%d]", i)
		if rule.Location == "" {
			errs = append(errs, fmt.Errorf("%s.location is required", prefix))
		}
		if rule.Side == "" {
			errs = append(errs, fmt.Errorf("%s.side is required", prefix))
		}
		if _, err := ParseWeekday(rule.Weekday); err != nil {
			errs = append(errs, fmt.Errorf("%s.weekday %q is invalid; use an English weekday name", prefix, rule.Weekday))
		}
		if rule.Hour < 0 || rule.Hour > 23 {
			errs = append(errs, fmt.Errorf("%s.hour %d is out of range [0, 23]", prefix, rule.Hour))
		}
	}

	// MCP server
	if cfg.MCP.Transport == "" {
		slog.Warn("mcp.transport is empty; home control will be unavailable")
	} else if !cfg.MCP.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("mcp.transport %q is invalid; valid values: stdio, streamable-http", cfg.MCP.Transport))
	}
	if cfg.MCP.Transport == TransportStdio && cfg.MCP.Command == "" {
		errs = append(errs, errors.New("mcp.command is required when transport is stdio"))
	}
	if cfg.MCP.Transport == TransportStreamableHTTP && cfg.MCP.URL == "" {
		errs = append(errs, errors.New("mcp.url is required when transport is streamable-http"))
	}

	return errors.Join(errs...)
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
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
