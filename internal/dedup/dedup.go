// Package dedup decides whether a freshly collected item is new, a
// same-source repeat, or a cross-source duplicate of something already
// stored.
package dedup

import (
	"context"
	"fmt"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

// Outcome classifies the result of a dedup check.
type Outcome int

const (
	// OutcomeNew means no existing item matches this source+guid or content hash.
	OutcomeNew Outcome = iota
	// SameSourceDuplicate means the same source already collected this guid.
	SameSourceDuplicate
	// CrossSourceDuplicate means a different source already has an item
	// with the same content hash.
	CrossSourceDuplicate
)

func (o Outcome) String() string {
	switch o {
	case SameSourceDuplicate:
		return "same_source_duplicate"
	case CrossSourceDuplicate:
		return "cross_source_duplicate"
	default:
		return "new"
	}
}

// CrossSourcePolicy selects what happens to a CrossSourceDuplicate.
type CrossSourcePolicy string

const (
	// PolicyReject drops cross-source duplicates entirely.
	PolicyReject CrossSourcePolicy = "reject"
	// PolicyLink keeps the item but annotates it with DuplicateOf.
	PolicyLink CrossSourcePolicy = "link"
	// PolicyOff disables cross-source checking; only same-source dedup runs.
	PolicyOff CrossSourcePolicy = "off"
)

// Deduper checks collected items against persisted items for duplication.
type Deduper struct {
	items  repository.ItemRepository
	policy CrossSourcePolicy
}

// New constructs a Deduper. An unrecognized policy falls back to
// PolicyLink, this station's default.
func New(items repository.ItemRepository, policy CrossSourcePolicy) *Deduper {
	switch policy {
	case PolicyReject, PolicyLink, PolicyOff:
	default:
		policy = PolicyLink
	}
	return &Deduper{items: items, policy: policy}
}

// Check classifies a single collected item. When the outcome is
// CrossSourceDuplicate and the policy is PolicyLink, duplicateOf is
// populated with the ID of the existing item it duplicates.
func (d *Deduper) Check(ctx context.Context, item *entity.CollectedItem) (outcome Outcome, duplicateOf string, err error) {
	existing, err := d.items.GetBySourceAndGUID(ctx, item.SourceID, item.GUID)
	if err != nil {
		return OutcomeNew, "", fmt.Errorf("dedup: same-source check: %w", err)
	}
	if existing != nil {
		return SameSourceDuplicate, existing.ID, nil
	}

	if d.policy == PolicyOff {
		return OutcomeNew, "", nil
	}

	crossExisting, err := d.items.GetByContentHash(ctx, item.ContentHash())
	if err != nil {
		return OutcomeNew, "", fmt.Errorf("dedup: cross-source check: %w", err)
	}
	if crossExisting != nil {
		return CrossSourceDuplicate, crossExisting.ID, nil
	}

	return OutcomeNew, "", nil
}

// BatchResult is the per-item outcome of a CheckBatch call, in the same
// order as the input slice.
type BatchResult struct {
	Item        *entity.CollectedItem
	Outcome     Outcome
	DuplicateOf string
}

// CheckBatch classifies many collected items in two round trips instead
// of one pair of queries per item, the same N+1-avoiding shape as the
// repository's ExistsByContentHashBatch.
func (d *Deduper) CheckBatch(ctx context.Context, items []*entity.CollectedItem) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))

	hashes := make([]string, len(items))
	for i, it := range items {
		hashes[i] = it.ContentHash()
		results[i] = BatchResult{Item: it, Outcome: OutcomeNew}
	}

	var hashExists map[string]bool
	if d.policy != PolicyOff {
		var err error
		hashExists, err = d.items.ExistsByContentHashBatch(ctx, hashes)
		if err != nil {
			return nil, fmt.Errorf("dedup: batch content hash check: %w", err)
		}
	}

	for i, it := range items {
		existing, err := d.items.GetBySourceAndGUID(ctx, it.SourceID, it.GUID)
		if err != nil {
			return nil, fmt.Errorf("dedup: same-source check for %s/%s: %w", it.SourceID, it.GUID, err)
		}
		if existing != nil {
			results[i].Outcome = SameSourceDuplicate
			results[i].DuplicateOf = existing.ID
			continue
		}

		if hashExists[hashes[i]] {
			crossExisting, err := d.items.GetByContentHash(ctx, hashes[i])
			if err != nil {
				return nil, fmt.Errorf("dedup: cross-source lookup for %s: %w", hashes[i], err)
			}
			results[i].Outcome = CrossSourceDuplicate
			if crossExisting != nil {
				results[i].DuplicateOf = crossExisting.ID
			}
		}
	}

	return results, nil
}

// Policy returns the configured cross-source policy.
func (d *Deduper) Policy() CrossSourcePolicy {
	return d.policy
}
