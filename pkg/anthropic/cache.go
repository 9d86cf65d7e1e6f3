package anthropic

// BuildCachedSystemBlocks constructs system content blocks with an ephemeral
// cache breakpoint. Prompts that repeat a long shared prefix (a feature
// rubric sent once per URL) read it from cache after the first call.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if ttl == "" {
		ttl = "5m"
	}
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}

// PlainSystemBlocks wraps text as a single uncached system block. Empty text
// yields no blocks.
func PlainSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{{Text: text}}
}
