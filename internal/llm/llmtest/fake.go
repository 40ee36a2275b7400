// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/kha159-create/alsani-cockpit/internal/llm"
)

// Fake replays canned replies in order and records every request.
// When the script runs out, the last reply is repeated.
type Fake struct {
	mu       sync.Mutex
	replies  []string
	Err      error
	Requests []llm.Request
}

// NewFake returns a Fake that answers with replies in order.
func NewFake(replies ...string) *Fake {
	return &Fake{replies: replies}
}

func (f *Fake) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.replies) == 0 {
		return "", errors.New("llmtest: no reply scripted")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

// Calls returns how many requests were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// LastPrompt returns the text of the final message of the latest request.
func (f *Fake) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return ""
	}
	msgs := f.Requests[len(f.Requests)-1].Messages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}
