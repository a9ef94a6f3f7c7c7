package query

import (
	"strings"
	"sync"
)

// CountTokens approximates token count as whitespace-delimited words.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

// Usage is a snapshot of accumulated prompt and response token counts.
type Usage struct {
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	TotalTokens    int `json:"total_tokens"`
	Calls          int `json:"calls"`
}

// TokenUsage accumulates approximate token counts across generation calls.
// It is owned by whoever constructs the orchestrator; there is no
// process-wide counter.
type TokenUsage struct {
	mu       sync.Mutex
	prompt   int
	response int
	calls    int
}

func (u *TokenUsage) Add(prompt, response string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prompt += CountTokens(prompt)
	u.response += CountTokens(response)
	u.calls++
}

func (u *TokenUsage) Snapshot() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Usage{
		PromptTokens:   u.prompt,
		ResponseTokens: u.response,
		TotalTokens:    u.prompt + u.response,
		Calls:          u.calls,
	}
}

// Reset zeroes the counters. Only an explicit call resets them.
func (u *TokenUsage) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prompt, u.response, u.calls = 0, 0, 0
}
