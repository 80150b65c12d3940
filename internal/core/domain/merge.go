package domain

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// NewCluster builds a fresh cluster from the first item and its analysis.
func NewCluster(item *Item, a Analysis, now time.Time) *Cluster {
	return &Cluster{
		Fingerprint:      item.Fingerprint,
		CanonicalText:    item.Content,
		CanonicalSummary: a.Summary,
		Embedding:        item.Embedding,
		Relevant:         a.Relevant,
		MentionCount:     1,
		SourceIDs:        []string{item.SourceID},
		Tags:             mergeSet(nil, a.Tags),
		Analogs:          mergeSet(nil, a.Analogs),
		ActionItem:       a.ActionItem,
		Category:         a.Category,
		ImportanceScore:  a.ImportanceScore,
		ImportanceReason: a.ImportanceReason,
		ProductScore:     a.ProductScore,
		Priority:         a.Priority,
		AlertWorthy:      a.AlertWorthy,
		SmallTeam:        a.SmallTeam,
		InfraBarrier:     a.InfraBarrier,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Merge attaches one more mention to the cluster and folds the incoming
// analysis into it under the monotonic merge rules:
//
//   - mention count only grows, source/tag/analog sets only gain members
//   - priority escalates, infra barrier improves, never the reverse
//   - alert-worthy and small-team flags are sticky once true
//   - a specific category is never downgraded to a generic one
//   - the action item is replaced only by an item of at least equal priority
func (c *Cluster) Merge(sourceID string, a Analysis, now time.Time) {
	c.MentionCount++
	c.SourceIDs = mergeSet(c.SourceIDs, []string{sourceID})
	c.Tags = mergeSet(c.Tags, a.Tags)
	c.Analogs = mergeSet(c.Analogs, a.Analogs)

	if a.ActionItem != "" && a.Priority.Rank() >= c.Priority.Rank() {
		c.ActionItem = a.ActionItem
	}

	if a.ProductScore > c.ProductScore {
		c.ProductScore = a.ProductScore
	}

	if a.Category != "" && (a.Category.IsSpecific() || !c.Category.IsSpecific()) {
		c.Category = a.Category
	}

	if a.Priority.Rank() > c.Priority.Rank() {
		c.Priority = a.Priority
	}

	if a.InfraBarrier.Rank() < c.InfraBarrier.Rank() {
		c.InfraBarrier = a.InfraBarrier
	}

	c.AlertWorthy = c.AlertWorthy || a.AlertWorthy
	c.SmallTeam = c.SmallTeam || a.SmallTeam
	c.UpdatedAt = now
}

// AbsorbMention counts one more mention without new analysis, used when
// a fingerprint-identical item arrives and the prior classification is
// reused wholesale.
func (c *Cluster) AbsorbMention(sourceID string, now time.Time) {
	c.MentionCount++
	c.SourceIDs = mergeSet(c.SourceIDs, []string{sourceID})
	c.UpdatedAt = now
}

// mergeSet unions trimmed non-empty values into a sorted, unique slice.
// Insertion order is irrelevant by contract; sorting keeps output stable.
func mergeSet(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, v := range existing {
		if v = strings.TrimSpace(v); v != "" {
			seen[v] = struct{}{}
		}
	}

	for _, v := range incoming {
		if v = strings.TrimSpace(v); v != "" {
			seen[v] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}

// ContainsSource reports whether the cluster already counts the source.
func (c *Cluster) ContainsSource(sourceID string) bool {
	return slices.Contains(c.SourceIDs, sourceID)
}
