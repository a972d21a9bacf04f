package retrieval

import (
	"strings"

	"annualcompare/pkg/core/document"
)

// Chunker slices a report's prose into retrieval units. Chunks follow
// sentence boundaries so an embedding never straddles a cut mid-sentence;
// table rows of one table stay together as a single chunk.
type Chunker struct {
	// MaxTokens bounds the estimated token count per chunk.
	MaxTokens int
	// MinChars drops fragments too short to retrieve meaningfully.
	MinChars int
}

func NewChunker() *Chunker {
	return &Chunker{MaxTokens: 500, MinChars: 20}
}

// TextChunk is a pre-embedding chunk with its page provenance.
type TextChunk struct {
	Page int
	Text string
}

// Split walks the block stream in order, accumulating sentences until the
// token budget fills, then starting a new chunk. Heading blocks are folded
// into the chunk that follows them.
func (c *Chunker) Split(report *document.Report) []TextChunk {
	var chunks []TextChunk
	var buf strings.Builder
	bufPage := 0
	bufTokens := 0

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if len(text) >= c.MinChars {
			chunks = append(chunks, TextChunk{Page: bufPage, Text: text})
		}
		buf.Reset()
		bufTokens = 0
	}

	tableTexts := map[string]*TextChunk{}
	var tableOrder []string

	for _, block := range report.Blocks {
		if block.Type == document.BlockTableRow {
			tc, ok := tableTexts[block.TableID]
			if !ok {
				tc = &TextChunk{Page: block.PageIndex}
				tableTexts[block.TableID] = tc
				tableOrder = append(tableOrder, block.TableID)
			}
			if tc.Text != "" {
				tc.Text += "\n"
			}
			tc.Text += block.RawText
			continue
		}

		// A chunk never straddles a page boundary; its page provenance
		// must stay exact for citations.
		if buf.Len() > 0 && block.PageIndex != bufPage {
			flush()
		}
		for _, sentence := range splitSentences(block.RawText) {
			tokens := estimateTokens(sentence)
			if bufTokens > 0 && bufTokens+tokens > c.MaxTokens {
				flush()
			}
			if buf.Len() == 0 {
				bufPage = block.PageIndex
			} else {
				buf.WriteByte(' ')
			}
			buf.WriteString(sentence)
			bufTokens += tokens
		}
	}
	flush()

	for _, id := range tableOrder {
		tc := tableTexts[id]
		if len(tc.Text) >= c.MinChars {
			chunks = append(chunks, *tc)
		}
	}
	return chunks
}

var sentenceEnders = map[rune]bool{
	'。': true, '！': true, '？': true, '.': true, '!': true, '?': true, '\n': true,
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if sentenceEnders[r] {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// estimateTokens approximates token count: each CJK rune is one token,
// runs of non-CJK text count one token per word.
func estimateTokens(text string) int {
	tokens := 0
	inWord := false
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			tokens++
			inWord = false
		case r == ' ' || r == '\t' || r == '\n':
			inWord = false
		default:
			if !inWord {
				tokens++
				inWord = true
			}
		}
	}
	return tokens
}
