package digest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

type fakeRepo struct {
	subscriber *domain.Subscriber
	clusters   []*domain.Cluster
	downvoted  [][]float32
}

func (f *fakeRepo) GetSubscriber(_ context.Context, _ string) (*domain.Subscriber, error) {
	return f.subscriber, nil
}

func (f *fakeRepo) ListDigestClusters(_ context.Context, _ string, _ time.Time, _ int) ([]*domain.Cluster, error) {
	return f.clusters, nil
}

func (f *fakeRepo) ListDownvotedEmbeddings(_ context.Context, _ string) ([][]float32, error) {
	return f.downvoted, nil
}

type fakeScorer struct {
	scores map[string]float32
}

func (f *fakeScorer) ScoreRelevance(_ context.Context, summary, _ string) (float32, error) {
	if score, ok := f.scores[summary]; ok {
		return score, nil
	}

	return 0.5, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DigestWindowHours:   24,
		DigestTargetItems:   6,
		DigestProductShare:  0.5,
		DigestMaxNonProduct: 3,
		DislikeSimilarity:   0.86,
		PromptMinScore:      0.35,
	}
}

func newComposer(repo *fakeRepo, scorer *fakeScorer, cfg *config.Config) *Composer {
	logger := zerolog.Nop()
	c := NewComposer(repo, scorer, cfg, &logger)
	c.now = func() time.Time { return time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC) }

	return c
}

func cluster(id string, category domain.Category, product float32, mentions int) *domain.Cluster {
	return &domain.Cluster{
		ID:               id,
		Relevant:         true,
		Category:         category,
		CanonicalSummary: "summary " + id,
		ProductScore:     product,
		ImportanceScore:  0.6,
		MentionCount:     mentions,
		Priority:         domain.TierLow,
		InfraBarrier:     domain.TierMedium,
	}
}

func TestComposeModeFilter(t *testing.T) {
	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters: []*domain.Cluster{
			cluster("product", domain.CategoryProduct, 0.8, 5),
			cluster("tech", domain.CategoryTechUpdate, 0, 5),
			cluster("report", domain.CategoryIndustryReport, 0, 5),
			cluster("trend", domain.CategoryTrend, 0, 5),
		},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "product", entries[0].ClusterID)
	assert.Equal(t, "trend", entries[1].ClusterID)

	entries, err = c.Compose(context.Background(), "sub", ModeTechUpdate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tech", entries[0].ClusterID)

	entries, err = c.Compose(context.Background(), "sub", ModeIndustryReport)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report", entries[0].ClusterID)
}

func TestComposeWeightedOrdering(t *testing.T) {
	lowBarrier := cluster("low-barrier", domain.CategoryProduct, 0.6, 3)
	lowBarrier.InfraBarrier = domain.TierLow

	highPriority := cluster("high-priority", domain.CategoryProduct, 0.6, 3)
	highPriority.Priority = domain.TierHigh

	popular := cluster("popular", domain.CategoryProduct, 0.6, 9)

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters: []*domain.Cluster{
			cluster("trend", domain.CategoryTrend, 0, 20),
			cluster("baseline", domain.CategoryProduct, 0.6, 3),
			popular,
			lowBarrier,
			highPriority,
		},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ClusterID
	}

	// Products before trend regardless of mentions, then priority,
	// then barrier-adjusted product score, then mention count.
	assert.Equal(t, []string{"high-priority", "low-barrier", "popular", "baseline", "trend"}, ids)
}

func TestComposeEngagementTieBreak(t *testing.T) {
	hot := cluster("hot", domain.CategoryProduct, 0.6, 3)
	hot.Engagement = 50

	cold := cluster("cold", domain.CategoryProduct, 0.6, 3)
	cold.Engagement = 2

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters:   []*domain.Cluster{cold, hot},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hot", entries[0].ClusterID)
}

func TestComposeQuotaCapsNonProduct(t *testing.T) {
	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters: []*domain.Cluster{
			cluster("p1", domain.CategoryProduct, 0.9, 5),
			cluster("p2", domain.CategoryProduct, 0.8, 5),
			cluster("p3", domain.CategoryProduct, 0.7, 5),
			cluster("p4", domain.CategoryProduct, 0.65, 5),
			cluster("t1", domain.CategoryTrend, 0, 9),
			cluster("t2", domain.CategoryTrend, 0, 8),
			cluster("t3", domain.CategoryTrend, 0, 7),
			cluster("t4", domain.CategoryTrend, 0, 6),
			cluster("t5", domain.CategoryTrend, 0, 5),
		},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	nonProduct := 0
	for _, e := range entries {
		if e.Category != domain.CategoryProduct {
			nonProduct++
		}
	}

	assert.Equal(t, 2, nonProduct)
}

func TestComposeBackfillRelaxesCap(t *testing.T) {
	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters: []*domain.Cluster{
			cluster("p1", domain.CategoryProduct, 0.9, 5),
			cluster("t1", domain.CategoryTrend, 0, 9),
			cluster("t2", domain.CategoryTrend, 0, 8),
			cluster("t3", domain.CategoryTrend, 0, 7),
			cluster("t4", domain.CategoryTrend, 0, 6),
			cluster("t5", domain.CategoryTrend, 0, 5),
		},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)

	// Cap admits three non-products; backfill adds the rest up to the
	// target rather than sending a short digest.
	require.Len(t, entries, 6)
	assert.Equal(t, "t4", entries[4].ClusterID)
	assert.Equal(t, "t5", entries[5].ClusterID)
}

func TestComposeBuildabilityGate(t *testing.T) {
	blocked := cluster("blocked", domain.CategoryProduct, 0.9, 5)
	blocked.InfraBarrier = domain.TierHigh

	friendly := cluster("friendly", domain.CategoryProduct, 0.5, 5)
	friendly.InfraBarrier = domain.TierHigh
	friendly.SmallTeam = true

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters:   []*domain.Cluster{blocked, friendly},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "friendly", entries[0].ClusterID)
	assert.False(t, entries[0].Fallback)
}

func TestComposeDislikeSuppression(t *testing.T) {
	disliked := cluster("disliked", domain.CategoryProduct, 0.9, 5)
	disliked.Embedding = []float32{1, 0, 0}

	fresh := cluster("fresh", domain.CategoryProduct, 0.5, 5)
	fresh.Embedding = []float32{0, 1, 0}

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters:   []*domain.Cluster{disliked, fresh},
		downvoted:  [][]float32{{1, 0, 0}},
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].ClusterID)
}

func TestComposePromptFloorMainModeOnly(t *testing.T) {
	offTopic := cluster("off-topic", domain.CategoryTechUpdate, 0, 5)

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub", RelevancePrompt: "agents"},
		clusters: []*domain.Cluster{
			cluster("on-topic", domain.CategoryProduct, 0.8, 5),
			cluster("noise", domain.CategoryProduct, 0.7, 5),
			offTopic,
		},
	}
	scorer := &fakeScorer{scores: map[string]float32{
		"summary on-topic":  0.9,
		"summary noise":     0.1,
		"summary off-topic": 0.1,
	}}
	c := newComposer(repo, scorer, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "on-topic", entries[0].ClusterID)

	// Topical digests skip the free-text filter.
	entries, err = c.Compose(context.Background(), "sub", ModeTechUpdate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "off-topic", entries[0].ClusterID)
}

func TestComposeFallbackWhenEmpty(t *testing.T) {
	var blocked []*domain.Cluster

	for i := 0; i < 7; i++ {
		b := cluster(fmt.Sprintf("blocked%d", i), domain.CategoryProduct, 0.9, 5)
		b.InfraBarrier = domain.TierHigh
		blocked = append(blocked, b)
	}

	repo := &fakeRepo{
		subscriber: &domain.Subscriber{ID: "sub"},
		clusters:   blocked,
	}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	require.Len(t, entries, 5, "the fallback pool is capped")

	for _, e := range entries {
		assert.True(t, e.Fallback)
	}
}

func TestComposeEmptyWindow(t *testing.T) {
	repo := &fakeRepo{subscriber: &domain.Subscriber{ID: "sub"}}
	c := newComposer(repo, &fakeScorer{}, testConfig())

	entries, err := c.Compose(context.Background(), "sub", ModeMain)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
