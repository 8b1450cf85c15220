package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinCacheableTokens(t *testing.T) {
	assert.Equal(t, 4096, MinCacheableTokens("claude-haiku-4-5-20251001"))
	assert.Equal(t, 2048, MinCacheableTokens("claude-3-5-haiku-latest"))
	assert.Equal(t, 1024, MinCacheableTokens("claude-sonnet-4-5-20250929"))
	assert.Equal(t, 1024, MinCacheableTokens("unknown"))
}

func TestSystemPrompt_ShortIsNotCached(t *testing.T) {
	blocks := SystemPrompt("claude-sonnet-4-5-20250929", "Classify gluten-free places.")
	require.Len(t, blocks, 1)
	assert.Equal(t, "Classify gluten-free places.", blocks[0].Text)
	assert.Nil(t, blocks[0].CacheControl)
}

func TestSystemPrompt_LongIsCached(t *testing.T) {
	text := strings.Repeat("rubric ", 700) // ~1225 tokens

	sonnet := SystemPrompt("claude-sonnet-4-5-20250929", text)
	require.Len(t, sonnet, 1)
	require.NotNil(t, sonnet[0].CacheControl)
	assert.Equal(t, "5m", sonnet[0].CacheControl.TTL)

	haiku := SystemPrompt("claude-haiku-4-5-20251001", text)
	assert.Nil(t, haiku[0].CacheControl)
}

func TestSystemPrompt_Empty(t *testing.T) {
	assert.Nil(t, SystemPrompt("claude-sonnet-4-5-20250929", ""))
}
