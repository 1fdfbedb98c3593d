package summarizer

import (
	"context"
	"fmt"

	"sentinelpi/internal/domain/entity"
)

// Summarizer produces a short summary of arbitrary text. Claude,
// OpenAI, and NoOp all implement it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// minContentLengthForSummary is the content length above which an
// item is considered worth summarizing; short content is left as-is.
const minContentLengthForSummary = 600

// EnrichItem fills in an item's Summary from its Content when the
// content is long and no summary was already supplied by the
// collector, mirroring the daemon's createSummarizer
// fail-fast-only-if-selected behavior: disabled (summarizer == nil)
// is a valid, common configuration, not an error.
func EnrichItem(ctx context.Context, summarizer Summarizer, item *entity.CollectedItem) error {
	if summarizer == nil {
		return nil
	}
	if item.Summary != "" || len(item.Content) < minContentLengthForSummary {
		return nil
	}

	summary, err := summarizer.Summarize(ctx, item.Content)
	if err != nil {
		return fmt.Errorf("summarizer: enrich item: %w", err)
	}
	item.Summary = summary
	return nil
}
