package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockInvoker is the slice of the Bedrock runtime client we use.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient runs Anthropic models on AWS Bedrock.
type BedrockClient struct {
	client  BedrockInvoker
	modelID string
}

// NewBedrockClient wraps a runtime client (usually bedrockruntime.NewFromConfig).
func NewBedrockClient(client BedrockInvoker, modelID string) *BedrockClient {
	if modelID == "" {
		modelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	return &BedrockClient{client: client, modelID: modelID}
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate invokes the model. Leading model turns are dropped because the
// messages API requires the conversation to open with a user turn.
func (b *BedrockClient) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []bedrockMessage
	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleModel {
			role = "assistant"
		}
		if len(msgs) == 0 && role == "assistant" {
			continue
		}
		msgs = append(msgs, bedrockMessage{
			Role:    role,
			Content: []bedrockContentBlock{{Type: "text", Text: m.Text}},
		})
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("bedrock: request has no user message")
	}

	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\nRespond with a single JSON object and nothing else.")
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           system,
		Messages:         msgs,
		Temperature:      req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: encode request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	log.Printf("[llm] bedrock %s (in: %d tokens, out: %d tokens)", b.modelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
