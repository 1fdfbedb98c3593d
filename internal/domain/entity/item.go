package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CollectedItem is the transport shape a collector yields for a single
// piece of content, before dedup/filter/score have run over it. It
// mirrors the original Python implementation's CollectedItem dataclass.
type CollectedItem struct {
	SourceID    string
	GUID        string
	Title       string
	URL         string
	Author      string
	Content     string
	Summary     string
	PublishedAt time.Time
	CollectedAt time.Time
	ImageURL    string
	MediaURLs   []string
	Keywords    []string
	Language    string
	Extra       map[string]any
}

// ContentHash is a stable fingerprint of the item's substantive content,
// used for cross-source duplicate detection.
func (c *CollectedItem) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Title + "\n" + c.Content))
	return hex.EncodeToString(sum[:])
}

// Item is a CollectedItem that has been persisted and processed by the
// filter engine and scorer.
type Item struct {
	ID           string
	SourceID     string
	GUID         string
	ContentHash  string
	Title        string
	URL          string
	Author       string
	Content      string
	Summary      string
	PublishedAt  time.Time
	CollectedAt  time.Time
	ImageURL     string
	MediaURLs    []string

	// Processing results
	Highlighted  bool
	Excluded     bool
	Tags         []string
	Keywords     []string
	Score        float64
	ScoreDetail  map[string]float64

	// Deduplication
	DuplicateOf *string

	// User state
	Read     bool
	Starred  bool
	Archived bool
}

// NewItem constructs an Item from a freshly collected item.
func NewItem(c CollectedItem) *Item {
	return &Item{
		SourceID:    c.SourceID,
		GUID:        c.GUID,
		ContentHash: c.ContentHash(),
		Title:       c.Title,
		URL:         c.URL,
		Author:      c.Author,
		Content:     c.Content,
		Summary:     c.Summary,
		PublishedAt: c.PublishedAt,
		CollectedAt: c.CollectedAt,
		ImageURL:    c.ImageURL,
		MediaURLs:   c.MediaURLs,
		Keywords:    c.Keywords,
	}
}
