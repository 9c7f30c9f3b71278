package terrachat

import (
	"context"
	"fmt"

	"github.com/Desarso/terrachat/models/anthropic"
	"github.com/Desarso/terrachat/models/gemini"
	"github.com/Desarso/terrachat/models/openaicompat"
)

// Create_Model builds the streaming model for cfg.Provider.
func Create_Model(ctx context.Context, cfg *Config) (Model, error) {
	switch cfg.Provider {
	case "openai":
		return openaicompat.New(cfg.APIKey(), cfg.OpenAIBaseURL, cfg.Model), nil
	case "openrouter", "groq", "cerebras":
		model := cfg.Model
		if model == "" {
			model = openaicompat.DefaultModels[cfg.Provider]
		}
		return openaicompat.New(cfg.APIKey(), openaicompat.BaseURLs[cfg.Provider], model), nil
	case "gemini":
		return gemini.New(ctx, cfg.APIKey(), cfg.Model)
	case "anthropic":
		return anthropic.New(cfg.APIKey(), cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
