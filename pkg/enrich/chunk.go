package enrich

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// chunkText splits body text into token-bounded chunks along sentence
// boundaries. A single sentence longer than maxTokens becomes its own chunk.
func chunkText(text, encoder string, maxTokens int) ([]string, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil))
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

// splitSentences breaks text into sentences. Blank lines always end a
// sentence so drawing notes that lack terminal punctuation still split.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	emit := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emit()
			continue
		}
		for _, part := range splitLine(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(part)
			if endsSentence(part) {
				emit()
			}
		}
	}
	emit()

	return sentences
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitLine splits on terminal punctuation within a line. A period after a
// digit followed by a space is treated as a numbered list marker, not a
// sentence end, so "1. GENERAL NOTES" stays whole.
func splitLine(line string) []string {
	var parts []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}
		if line[i] == '.' && i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) && line[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' || line[j] == ']') {
			current.WriteByte(line[j])
			j++
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}
