package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	OpenAI OpenAIConfig `koanf:"openai"`
	Audio  AudioConfig  `koanf:"audio"`
	Agent  AgentConfig  `koanf:"agent"`
}

type OpenAIConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type AudioConfig struct {
	// CaptureBufferSize is the capture device buffer, in frames.
	CaptureBufferSize int `koanf:"capture_buffer_size"`
	// PlaybackBufferSize is the playback device buffer, in frames.
	PlaybackBufferSize int `koanf:"playback_buffer_size"`
}

type AgentConfig struct {
	SystemPrompt string `koanf:"system_prompt"`
	// MaxTurns bounds the number of turns processed. Zero means unbounded.
	MaxTurns int `koanf:"max_turns"`
}

const defaultSystemPrompt = "You are a helpful voice assistant. " +
	"Keep your responses short and conversational; they will be spoken aloud."

// Load reads configuration from VOXLOOP_-prefixed environment variables.
// A double underscore separates config sections, e.g.
// VOXLOOP_OPENAI__API_KEY maps to openai.api_key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("VOXLOOP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VOXLOOP_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("openai.api_key") {
		k.Set("openai.api_key", os.Getenv("OPENAI_API_KEY"))
	}
	if !k.Exists("audio.capture_buffer_size") {
		k.Set("audio.capture_buffer_size", 1024)
	}
	if !k.Exists("audio.playback_buffer_size") {
		k.Set("audio.playback_buffer_size", 2400)
	}
	if !k.Exists("agent.system_prompt") {
		k.Set("agent.system_prompt", defaultSystemPrompt)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
