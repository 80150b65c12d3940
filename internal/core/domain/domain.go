// Package domain defines the core entities of the news-radar pipeline:
// raw items, deduplicated clusters ("stories"), alerts and subscriber
// preferences, plus the pure merge rules applied when an item attaches
// to a cluster.
package domain

import "time"

// Source kinds.
const (
	SourceKindTelegram = "telegram"
	SourceKindWeb      = "web"
	SourceKindAPI      = "api"
)

// Category is the analyzer's classification of a story.
type Category string

const (
	CategoryProduct        Category = "product"
	CategoryTrend          Category = "trend"
	CategoryResearch       Category = "research"
	CategoryTechUpdate     Category = "tech_update"
	CategoryIndustryReport Category = "industry_report"
	CategoryMisc           Category = "misc"
)

// specificCategories never get downgraded back to a generic category on merge.
var specificCategories = map[Category]bool{
	CategoryProduct:        true,
	CategoryTechUpdate:     true,
	CategoryIndustryReport: true,
}

// IsSpecific reports whether the category belongs to the non-downgradable set.
func (c Category) IsSpecific() bool {
	return specificCategories[c]
}

// Tier is a coarse low/medium/high ordering used for both priority and
// infrastructure barrier.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Rank maps a tier to its ordinal; unknown values rank as low.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	default:
		return 1
	}
}

// Alert kinds.
const (
	AlertKindSimilar   = "similar"
	AlertKindImportant = "important"
	AlertKindTrend     = "trend"
	AlertKindReactions = "reactions"
)

// Source is one ingestion origin (a channel, a site, an API feed).
type Source struct {
	ID         string
	Kind       string
	Identifier string
	Title      string
	CreatedAt  time.Time
}

// Item is a single ingested unit. An item is created once per
// (source, external id) pair and never deleted by the core.
type Item struct {
	ID          string
	SourceID    string
	ExternalID  string
	Content     string
	Summary     string
	Embedding   []float32
	Engagement  int
	Fingerprint string
	// Relevant is nil until the item has been analyzed.
	Relevant    *bool
	ClusterID   string
	PublishedAt time.Time
	IngestedAt  time.Time
}

// Cluster is the canonical deduplicated representation of one story.
type Cluster struct {
	ID               string
	Fingerprint      string
	CanonicalText    string
	CanonicalSummary string
	Embedding        []float32
	Relevant         bool
	MentionCount     int
	SourceIDs        []string
	Tags             []string
	Analogs          []string
	ActionItem       string
	Category         Category
	ImportanceScore  float32
	ImportanceReason string
	ProductScore     float32
	Priority         Tier
	AlertWorthy      bool
	SmallTeam        bool
	InfraBarrier     Tier
	FirstNotifiedAt  *time.Time
	// PopularityNotifiedMentions is the mention count watermark of the last
	// popularity follow-up; it never moves backward.
	PopularityNotifiedMentions int
	// Engagement is the summed reaction count of the cluster's items,
	// aggregated at query time for ranking. Not a stored column.
	Engagement int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Notified reports whether the cluster has ever been alerted on.
func (c *Cluster) Notified() bool {
	return c.FirstNotifiedAt != nil
}

// Buildable reports whether the story is realistically implementable:
// small-team-buildable or at most a medium infrastructure barrier.
func (c *Cluster) Buildable() bool {
	return c.SmallTeam || c.InfraBarrier.Rank() <= TierMedium.Rank()
}

// Analysis is the analyzer's structured judgment of one item.
type Analysis struct {
	Summary          string
	Relevant         bool
	ImportanceScore  float32
	ImportanceReason string
	Tags             []string
	Category         Category
	SmallTeam        bool
	InfraBarrier     Tier
	ProductScore     float32
	Priority         Tier
	AlertWorthy      bool
	Analogs          []string
	ActionItem       string
}

// AlertRecord is an immutable record of one notification sent to one
// subscriber for one cluster.
type AlertRecord struct {
	ID             string
	SubscriberID   string
	ClusterID      string
	Kind           string
	Reason         string
	RelevanceScore float32
	CreatedAt      time.Time
}

// FeedbackVote is a subscriber's +1/-1 reaction to a cluster, unique per
// (subscriber, cluster); the last vote wins.
type FeedbackVote struct {
	SubscriberID string
	ClusterID    string
	Vote         int
	CreatedAt    time.Time
}

// Subscriber holds per-subscriber preferences. Tech-update and
// industry-report stories are opt-in.
type Subscriber struct {
	ID                     string
	ChatID                 int64
	Username               string
	DigestTime             string
	Timezone               string
	IncludeTechUpdates     bool
	IncludeIndustryReports bool
	RelevancePrompt        string
	CreatedAt              time.Time
}

// WantsCategory reports whether the subscriber receives stories of the
// given category; only the two optional categories can be opted out.
func (s *Subscriber) WantsCategory(c Category) bool {
	switch c {
	case CategoryTechUpdate:
		return s.IncludeTechUpdates
	case CategoryIndustryReport:
		return s.IncludeIndustryReports
	default:
		return true
	}
}
