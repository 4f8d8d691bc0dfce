package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/instructions.txt
var instructionsRaw string

// Instructions returns the trimmed system prompt. The embed is compile-time,
// so this is safe to call concurrently.
func Instructions() string {
	return strings.TrimSpace(instructionsRaw)
}
