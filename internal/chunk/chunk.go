// Package chunk splits support documents into retrievable units.
package chunk

import (
	"strconv"
	"time"
)

// Metadata describes where a chunk came from. Path, ModTime and the
// line/segment position are required by the indexing and staleness logic;
// anything else goes into Extra.
type Metadata struct {
	DocID          string
	Path           string
	ModTime        time.Time
	Line           int // 1-based line number in the source file
	Segment        int // 0-based segment index within the line
	SegmentsInLine int
	Extra          map[string]string
}

// Chunk is the smallest retrievable unit of document text: one source line,
// or one token window of an over-long line.
type Chunk struct {
	ID           string
	Content      string
	Language     string
	DocumentType string
	Metadata     Metadata
}

// PayloadMap flattens chunk fields and metadata into the string map stored
// alongside the vector, so the store can filter on them.
func (c *Chunk) PayloadMap() map[string]string {
	m := map[string]string{
		"doc_id":        c.Metadata.DocID,
		"path":          c.Metadata.Path,
		"mtime":         FormatModTime(c.Metadata.ModTime),
		"line":          strconv.Itoa(c.Metadata.Line),
		"segment":       strconv.Itoa(c.Metadata.Segment),
		"language":      c.Language,
		"document_type": c.DocumentType,
	}
	for k, v := range c.Metadata.Extra {
		m[k] = v
	}
	return m
}

// FormatModTime renders a modification time the way it is stored in entry
// metadata. Staleness checks compare these strings for equality only.
func FormatModTime(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}
