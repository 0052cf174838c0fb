package service

import (
	"regexp"
	"strings"

	"github.com/devin-clone/core-backend/internal/chat/domain"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(\\w+)?\n(.*?)```")

// ExtractCodeBlocks scans a completed message for triple-backtick fenced
// regions and returns {language, code} pairs in source order. Blocks
// without a language tag are reported as "plaintext".
func ExtractCodeBlocks(content string) []domain.CodeBlock {
	matches := fencedBlockRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]domain.CodeBlock, 0, len(matches))
	for _, m := range matches {
		language := m[1]
		if language == "" {
			language = "plaintext"
		}
		blocks = append(blocks, domain.CodeBlock{
			Language: language,
			Code:     strings.TrimSpace(m[2]),
		})
	}
	return blocks
}
