// Package tokens estimates token counts with a tiktoken codec.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens in text. Claude has no public tokenizer, so GPT-4 encoding
// is used as an approximation.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a counter using the GPT-4 encoding.
func NewCounter() (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		// Fallback to character-based estimation (4 chars ≈ 1 token)
		return len(text) / 4
	}

	count, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

//nolint:gochecknoglobals // Shared codec, loading it is not free
var (
	sharedOnce    sync.Once
	sharedCounter *Counter
)

// Estimate counts tokens with a process-wide counter.
func Estimate(text string) int {
	sharedOnce.Do(func() {
		// A nil counter falls back to len/4.
		sharedCounter, _ = NewCounter()
	})
	return sharedCounter.Count(text)
}
