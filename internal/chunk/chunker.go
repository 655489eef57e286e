package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultChunkSize is the token budget for a single chunk.
	DefaultChunkSize = 300
	// DefaultOverlap is the token overlap between consecutive windows of an
	// over-long line.
	DefaultOverlap = 50
)

// LineChunker produces one chunk per non-blank source line, splitting lines
// that exceed the token budget into overlapping windows. Chunk ids are a
// pure function of file content, so re-running on unchanged input yields
// identical ids and content.
type LineChunker struct {
	tokenizer *Tokenizer
	chunkSize int
	overlap   int
}

// NewLineChunker creates a chunker with the given token budget and window
// overlap. Non-positive or inconsistent values fall back to defaults.
func NewLineChunker(chunkSize, overlap int) *LineChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 2
		}
	}
	return &LineChunker{
		tokenizer: NewTokenizer(),
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// ChunkFile reads a UTF-8 text file and returns its ordered chunks. The
// document type is detected once over the whole document, so every chunk of
// a file shares the same category. A read failure returns no partial result.
func (c *LineChunker) ChunkFile(path, language string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return c.chunkText(string(data), docID, path, language), nil
}

func (c *LineChunker) chunkText(text, docID, path, language string) []Chunk {
	docType := DetectDocumentType(text)

	var chunks []Chunk
	for i, raw := range strings.Split(text, "\n") {
		lineNumber := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		tokens := c.tokenizer.Encode(line)
		windows := c.tokenizer.Windows(tokens, c.chunkSize, c.overlap)
		for seg, window := range windows {
			chunks = append(chunks, Chunk{
				ID:           fmt.Sprintf("%s_L%d_S%d", docID, lineNumber, seg),
				Content:      c.tokenizer.Decode(window),
				Language:     language,
				DocumentType: docType,
				Metadata: Metadata{
					DocID:          docID,
					Path:           path,
					Line:           lineNumber,
					Segment:        seg,
					SegmentsInLine: len(windows),
				},
			})
		}
	}
	return chunks
}
