package ingest

import "strings"

type ChunkerConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

// Chunker splits page text into overlapping sentence windows sized for
// embedding.
type Chunker struct {
	config ChunkerConfig
}

func NewChunker(config ChunkerConfig) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 100
	}
	return Chunker{config: config}
}

func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return nil
	}

	var chunks []string
	current := strings.Builder{}

	for _, sentence := range splitSentences(text) {
		if current.Len()+len(sentence) > c.config.ChunkSize {
			if current.Len() >= c.config.MinChunkLength {
				chunks = append(chunks, strings.TrimSpace(current.String()))
			}

			if c.config.ChunkOverlap > 0 && current.Len() > c.config.ChunkOverlap {
				tail := current.String()
				tail = tail[len(tail)-c.config.ChunkOverlap:]
				current.Reset()
				current.WriteString(tail)
			} else {
				current.Reset()
			}
		}

		current.WriteString(sentence)
		current.WriteString(" ")
	}

	if current.Len() >= c.config.MinChunkLength {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

func splitSentences(text string) []string {
	enders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}
	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		for _, ender := range enders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
