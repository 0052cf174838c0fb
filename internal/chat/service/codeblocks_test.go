package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeBlocks(t *testing.T) {
	content := "Here is the fix:\n" +
		"```python\n" +
		"def add(a, b):\n    return a + b\n" +
		"```\n" +
		"And the caller:\n" +
		"```javascript\n" +
		"const sum = add(1, 2);\n" +
		"```\n" +
		"Done."

	blocks := ExtractCodeBlocks(content)
	require.Len(t, blocks, 2)

	assert.Equal(t, "python", blocks[0].Language)
	assert.Equal(t, "def add(a, b):\n    return a + b", blocks[0].Code)

	assert.Equal(t, "javascript", blocks[1].Language)
	assert.Equal(t, "const sum = add(1, 2);", blocks[1].Code)
}

func TestExtractCodeBlocksDefaultLanguage(t *testing.T) {
	blocks := ExtractCodeBlocks("```\nplain text body\n```")
	require.Len(t, blocks, 1)
	assert.Equal(t, "plaintext", blocks[0].Language)
	assert.Equal(t, "plain text body", blocks[0].Code)
}

func TestExtractCodeBlocksNone(t *testing.T) {
	assert.Nil(t, ExtractCodeBlocks("no fences here"))
	assert.Nil(t, ExtractCodeBlocks("inline `code` only"))
}
