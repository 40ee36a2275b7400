package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kha159-create/alsani-cockpit/internal/pkg/httpretry"
)

// GeminiClient calls the Generative Language generateContent endpoint.
type GeminiClient struct {
	http    httpretry.HTTPDoer
	retry   *httpretry.RetryClient
	baseURL string
	model   string
	apiKey  string
}

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int

	// HTTP overrides the transport.
	HTTP  httpretry.HTTPDoer
	Retry []httpretry.Option
}

// NewGeminiClient builds a client. The API key must come from configuration.
func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is not configured (set GEMINI_API_KEY)")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	base := opts.HTTP
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	}
	return &GeminiClient{
		http:    base,
		retry:   httpretry.NewRetryClient(base, opts.MaxAttempts, opts.Retry...),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		apiKey:  opts.APIKey,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the conversation and returns the first candidate's text.
// Any failed attempt is retried, including client errors, undecodable
// bodies and empty candidate lists.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{}
	for _, m := range req.Messages {
		body.Contents = append(body.Contents, geminiContent{
			Role:  string(m.Role),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON || req.Temperature > 0 || req.MaxTokens > 0 {
		gc := &geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
		if req.JSON {
			gc.ResponseMimeType = "application/json"
		}
		body.GenerationConfig = gc
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	var text string
	err = c.retry.Run(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.generateOnce(ctx, payload)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) generateOnce(ctx context.Context, payload []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}

	var out geminiResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("gemini: %s (status %d)", out.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("gemini: request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("gemini: decode response: %w", decodeErr)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// redactKey keeps the API key out of transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), url.QueryEscape(key)) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), url.QueryEscape(key), "***"))
}
