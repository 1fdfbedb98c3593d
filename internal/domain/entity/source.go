package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SourceType enumerates the collector a Source is routed to.
type SourceType string

const (
	SourceTypeRSS      SourceType = "rss"
	SourceTypeReddit   SourceType = "reddit"
	SourceTypeYouTube  SourceType = "youtube"
	SourceTypeMastodon SourceType = "mastodon"
	SourceTypeWeb      SourceType = "web"
	SourceTypeCustom   SourceType = "custom"
)

// Source represents a monitored feed, account, or page.
// ID is derived deterministically from Name and URL so that re-importing
// the same OPML/config twice never creates a duplicate source.
type Source struct {
	ID                 string
	Name               string
	URL                string
	Type               SourceType
	Category           string
	Priority           int            // lower runs first when multiple sources are due
	IntervalMinutes    int            // check cadence
	Enabled            bool
	Config             map[string]any // opaque per-type config (selectors, mapping, auth, ...)
	LastCheckAt        *time.Time
	LastSuccessAt      *time.Time
	ConsecutiveErrors  int
	CreatedAt          time.Time
}

// DeriveSourceID computes the stable opaque ID for a source from its
// name and URL, so the same logical source always maps to the same ID
// across repeated OPML imports or config reloads.
func DeriveSourceID(name, url string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + url))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks the Source entity's required fields and defaults.
func (s *Source) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}

	if err := ValidateURL(s.URL); err != nil {
		return fmt.Errorf("source url: %w", err)
	}

	switch s.Type {
	case SourceTypeRSS, SourceTypeReddit, SourceTypeYouTube, SourceTypeMastodon, SourceTypeWeb, SourceTypeCustom:
	case "":
		s.Type = SourceTypeRSS
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown source type: %s", s.Type)}
	}

	if (s.Type == SourceTypeWeb || s.Type == SourceTypeCustom) && len(s.Config) == 0 {
		return &ValidationError{Field: "config", Message: fmt.Sprintf("config is required for %s sources", s.Type)}
	}

	if s.IntervalMinutes <= 0 {
		s.IntervalMinutes = 30
	}

	if s.ID == "" {
		s.ID = DeriveSourceID(s.Name, s.URL)
	}

	return nil
}

// IsDue reports whether the source should be checked again at `now`,
// given the last check time and its configured interval.
func (s *Source) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.LastCheckAt == nil {
		return true
	}
	interval := time.Duration(s.IntervalMinutes) * time.Minute
	if s.ConsecutiveErrors > 0 {
		// exponential backoff, capped at 6 hours
		backoff := interval
		for i := 0; i < s.ConsecutiveErrors && backoff < 6*time.Hour; i++ {
			backoff *= 2
		}
		if backoff > 6*time.Hour {
			backoff = 6 * time.Hour
		}
		interval = backoff
	}
	return now.Sub(*s.LastCheckAt) >= interval
}
