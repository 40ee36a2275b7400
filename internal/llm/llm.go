// Package llm talks to the hosted text-generation models used for file
// classification and the dashboard's written commentary.
package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one conversation turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request is a provider-neutral generation request.
type Request struct {
	System   string
	Messages []Message
	// JSON asks the provider for a JSON response where it supports that.
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Generator produces text from a conversation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Prompt builds a single-turn request.
func Prompt(text string) Request {
	return Request{Messages: []Message{{Role: RoleUser, Text: text}}}
}

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject returns the outermost brace-delimited span of text:
// from the first "{" to the last "}". Models often wrap JSON in prose or
// code fences.
func ExtractJSONObject(text string) (string, bool) {
	m := jsonObjectRe.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}
