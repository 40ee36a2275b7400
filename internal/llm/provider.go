package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/kha159-create/alsani-cockpit/internal/config"
)

// NewFromConfig builds the configured provider. Bedrock credentials come
// from the AWS default chain or the configured profile.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, awsCfg config.AWSConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "gemini":
		client, err := NewGeminiClient(GeminiOptions{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout(),
			MaxAttempts: cfg.MaxAttempts,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "bedrock":
		sdkCfg, err := awsCfg.SDKConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return NewBedrockClient(bedrockruntime.NewFromConfig(sdkCfg), cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
