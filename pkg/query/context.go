package query

import (
	"strings"

	"github.com/planrag/backend/pkg/ai"
	"github.com/planrag/backend/pkg/store"
)

// maxContextPassages caps how many retrieved passages enter the context.
const maxContextPassages = 10

// TruncationMarker is appended whenever assembled context was cut to fit
// the token cap.
const TruncationMarker = "[context truncated]"

var headerLabels = []string{
	"Drawing Number:",
	"Version:",
	"Title:",
	"Date:",
	"Discipline:",
}

func isHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, label := range headerLabels {
		if strings.HasPrefix(trimmed, label) {
			return true
		}
	}
	return false
}

// assembleContext concatenates passages in descending relevance order, at
// most maxContextPassages of them, bounded by capTokens whitespace tokens.
// Overflow is cut at whole-word boundaries and marked; a metadata header
// line is either kept whole or dropped whole, never cut inside. Zero
// passages yield the explicit no-context marker so generation still runs.
func assembleContext(passages []store.Passage, capTokens int) string {
	if len(passages) == 0 {
		return ai.NoContextMarker
	}
	if len(passages) > maxContextPassages {
		passages = passages[:maxContextPassages]
	}

	var parts []string
	for _, p := range passages {
		parts = append(parts, p.Text)
	}
	full := strings.Join(parts, "\n\n")

	if capTokens <= 0 || CountTokens(full) <= capTokens {
		return full
	}

	remaining := capTokens
	var out []string
	for _, line := range strings.Split(full, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, line)
			continue
		}
		if len(words) <= remaining {
			out = append(out, line)
			remaining -= len(words)
			continue
		}
		if remaining > 0 && !isHeaderLine(line) {
			out = append(out, strings.Join(words[:remaining], " "))
		}
		remaining = 0
		break
	}

	assembled := strings.TrimRight(strings.Join(out, "\n"), "\n ")
	if assembled == "" {
		return TruncationMarker
	}
	return assembled + " " + TruncationMarker
}
