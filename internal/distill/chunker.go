package distill

import (
	"strings"
	"unicode/utf8"
)

// chunkSize is the target chunk length in runes. Transcripts and
// feedback usually fit in one chunk; long conversations get split so a
// single extraction call never sees more than this much text.
const chunkSize = 4000

// chunkOverlap carries trailing context into the next chunk so a
// learning that straddles a boundary is still visible whole.
const chunkOverlap = 200

// chunkText splits text into overlapping chunks, splitting on the
// coarsest separator that produces pieces under the size limit.
func chunkText(text string) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}
	return recursiveSplit(text, []string{"\n\n", "\n", ". ", " ", ""})
}

func recursiveSplit(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return hardSplit(text)
	}

	sep := separators[0]
	if sep == "" {
		return hardSplit(text)
	}

	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return recursiveSplit(text, separators[1:])
	}

	var chunks []string
	var current strings.Builder
	for _, part := range parts {
		piece := part
		if current.Len() > 0 {
			piece = sep + part
		}
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece) > chunkSize && current.Len() > 0 {
			chunks = append(chunks, current.String())
			tail := overlapTail(current.String())
			current.Reset()
			current.WriteString(tail)
			piece = part
			if tail != "" {
				piece = sep + part
			}
		}
		// A single oversize part splits on the next finer separator.
		if utf8.RuneCountInString(piece) > chunkSize {
			for _, sub := range recursiveSplit(part, separators[1:]) {
				chunks = append(chunks, sub)
			}
			current.Reset()
			continue
		}
		current.WriteString(piece)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// hardSplit cuts on rune boundaries when no separator works.
func hardSplit(text string) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += chunkSize - chunkOverlap {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// overlapTail returns the last chunkOverlap runes of a chunk.
func overlapTail(s string) string {
	runes := []rune(s)
	if len(runes) <= chunkOverlap {
		return s
	}
	return string(runes[len(runes)-chunkOverlap:])
}
