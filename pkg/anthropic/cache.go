package anthropic

import "strings"

// minCacheableTokens is the shortest prompt prefix each model family will
// cache. Shorter blocks marked for caching are processed normally.
var minCacheableTokens = []struct {
	prefix string
	tokens int
}{
	{"claude-haiku-4-5", 4096},
	{"claude-opus-4-5", 4096},
	{"claude-3-5-haiku", 2048},
	{"claude-3-haiku", 2048},
}

const defaultMinCacheableTokens = 1024

// MinCacheableTokens returns the prompt-cache threshold for model.
func MinCacheableTokens(model string) int {
	for _, m := range minCacheableTokens {
		if strings.HasPrefix(model, m.prefix) {
			return m.tokens
		}
	}
	return defaultMinCacheableTokens
}

// estimateTokens is a rough count at four bytes per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// SystemPrompt wraps a static system prompt as a single block, marked for
// ephemeral caching only when it is long enough for model to cache.
func SystemPrompt(model, text string) []SystemBlock {
	if text == "" {
		return nil
	}
	block := SystemBlock{Text: text}
	if estimateTokens(text) >= MinCacheableTokens(model) {
		block.CacheControl = &CacheControl{TTL: "5m"}
	}
	return []SystemBlock{block}
}
