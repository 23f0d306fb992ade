// Package config provides configuration helpers for holo commands.
// Settings come from the environment, optionally seeded from a .env
// file via LoadEnv.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultWebAddr    = ":8090"
)

// LoadEnv loads environment variables from the given .env file.
// A missing file is not an error; real environment always wins.
func LoadEnv(path string) {
	godotenv.Load(path)
}

// STTURL returns the speech-to-text WebSocket URL from HOLO_STT_URL.
// Exits if not set.
func STTURL() string {
	return required("HOLO_STT_URL", "ws://host:port/stt")
}

// TTSURL returns the text-to-speech WebSocket URL from HOLO_TTS_URL.
// Exits if not set.
func TTSURL() string {
	return required("HOLO_TTS_URL", "ws://host:port/tts")
}

// LLMBaseURL returns the chat completion base URL from HOLO_LLM_URL.
func LLMBaseURL() string {
	return envOr("HOLO_LLM_URL", DefaultLLMBaseURL)
}

// LLMFallbackURL returns the backup chat completion base URL from
// HOLO_LLM_FALLBACK_URL. Empty means no fallback provider.
func LLMFallbackURL() string {
	return os.Getenv("HOLO_LLM_FALLBACK_URL")
}

// LLMKey returns the API key from HOLO_LLM_KEY.
// Empty is fine for local providers.
func LLMKey() string {
	return os.Getenv("HOLO_LLM_KEY")
}

// LLMModel returns the chat model from HOLO_LLM_MODEL.
func LLMModel() string {
	return envOr("HOLO_LLM_MODEL", DefaultLLMModel)
}

// TTSVoice returns the synthesis voice from HOLO_TTS_VOICE.
func TTSVoice() string {
	return os.Getenv("HOLO_TTS_VOICE")
}

// WebAddr returns the dashboard listen address from HOLO_WEB_ADDR.
func WebAddr() string {
	return envOr("HOLO_WEB_ADDR", DefaultWebAddr)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func required(key, example string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", key)
		fmt.Fprintf(os.Stderr, "Usage: %s=%s go run ./cmd/holo\n", key, example)
		os.Exit(1)
	}
	return v
}
